package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/api/middleware"
	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/events"
	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/handlers"
	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/store"
)

// NewRouter creates and configures the HTTP router. redisStore and hub
// may be nil; the summary cache, rate limiter and event stream are then
// simply not mounted.
func NewRouter(logger zerolog.Logger, st store.MessageStore, redisStore *store.RedisStore, hub *events.Hub) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(1 << 20)) // 1MB: payload dumps can be large
	r.Use(middleware.RequireJSON)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting (Redis-backed, optional)
	if redisStore != nil {
		limiter := middleware.NewRateLimiter(redisStore.Client(), logger)
		r.Use(limiter.Middleware)
	}

	// CORS - the browser UI is served from a different origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(st, redisStore, hub, logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	r.Get("/contacts", h.ListContacts)
	r.Get("/messages/{waId}", h.ListMessages)
	r.Post("/messages/send", h.SendMessage)
	r.Post("/webhook", h.Webhook)
	r.Get("/events", h.Events)

	return r
}
