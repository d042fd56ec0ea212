package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/events"
	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/ingest"
	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store  store.MessageStore
	cache  *store.RedisStore // nil when Redis is not configured
	hub    *events.Hub       // nil when no event transport is mounted
	sink   events.Sink
	merger *ingest.Merger
	logger zerolog.Logger
}

// NewHandler creates a new Handler. cache and hub may be nil.
func NewHandler(st store.MessageStore, cache *store.RedisStore, hub *events.Hub, logger zerolog.Logger) *Handler {
	var sink events.Sink = events.NopSink{}
	if hub != nil {
		sink = hub
	}
	return &Handler{
		store:  st,
		cache:  cache,
		hub:    hub,
		sink:   sink,
		merger: ingest.NewMerger(st, sink, logger),
		logger: logger,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// ErrorDetails sends a JSON error response carrying a diagnostic detail
// string alongside the message.
func (h *Handler) ErrorDetails(w http.ResponseWriter, status int, message, details string) {
	h.JSON(w, status, map[string]string{"error": message, "details": details})
}
