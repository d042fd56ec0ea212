package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waweb_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waweb_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Ingestion metrics
	WebhooksReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waweb_webhooks_received_total",
			Help: "Total webhook deliveries received",
		},
	)

	MessagesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waweb_messages_ingested_total",
			Help: "Total inbound messages upserted",
		},
		[]string{"kind"},
	)

	StatusesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waweb_statuses_applied_total",
			Help: "Total status updates processed",
		},
		[]string{"status"},
	)

	IngestFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waweb_ingest_failures_total",
			Help: "Total ingestion items skipped due to errors",
		},
		[]string{"kind"}, // "message" or "status"
	)

	// API metrics
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waweb_messages_sent_total",
			Help: "Total outbound messages accepted via the API",
		},
	)

	SummaryCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waweb_summary_cache_requests_total",
			Help: "Contact summary cache lookups",
		},
		[]string{"result"}, // "hit" or "miss"
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waweb_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
