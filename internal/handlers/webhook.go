package handlers

import (
	"io"
	"net/http"

	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/ingest"
	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/metrics"
)

// webhookAck is the only webhook response body. The sender is always
// acked: surfacing per-item failures would just trigger upstream retry
// storms for input we already logged and counted.
var webhookAck = map[string]bool{"success": true}

// Webhook ingests one webhook payload. Malformed payloads and failing
// items are logged and skipped; the delivery is acknowledged regardless.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	metrics.WebhooksReceived.Inc()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn().Err(err).Msg("webhook body read failed")
		h.JSON(w, http.StatusOK, webhookAck)
		return
	}

	payload, err := ingest.ParsePayload(body)
	if err != nil {
		h.logger.Warn().Err(err).Msg("ignoring malformed webhook payload")
		h.JSON(w, http.StatusOK, webhookAck)
		return
	}

	res := h.merger.Process(r.Context(), payload, "")
	if res.Messages+res.Statuses > 0 {
		h.invalidateSummaryCache(r.Context())
	}

	h.logger.Info().
		Int("messages", res.Messages).
		Int("statuses", res.Statuses).
		Int("failures", len(res.Failures)).
		Msg("webhook processed")

	h.JSON(w, http.StatusOK, webhookAck)
}
