package handlers

import (
	"net/http"

	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/metrics"
)

// ListContacts returns one summary per conversation: display name, latest
// message preview and unread count, newest conversation first.
//
// The Redis cache is consulted first when configured; a store failure is
// never masked as an empty contact list.
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.cache != nil {
		cached, err := h.cache.GetContactSummaries(ctx)
		if err != nil {
			h.logger.Warn().Err(err).Msg("summary cache read failed")
		}
		if cached != nil {
			metrics.SummaryCacheHits.WithLabelValues("hit").Inc()
			h.JSON(w, http.StatusOK, cached)
			return
		}
		metrics.SummaryCacheHits.WithLabelValues("miss").Inc()
	}

	summaries, err := h.store.ContactSummaries(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch contact summaries")
		h.ErrorDetails(w, http.StatusInternalServerError, "failed to fetch contacts", err.Error())
		return
	}

	if h.cache != nil {
		if err := h.cache.SetContactSummaries(ctx, summaries); err != nil {
			h.logger.Warn().Err(err).Msg("summary cache write failed")
		}
	}

	h.JSON(w, http.StatusOK, summaries)
}
