package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/events"
	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/metrics"
	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/models"
)

const maxMessageBody = 4096

// ListMessages returns the full thread for one conversation, oldest first.
// An unknown conversation yields an empty list, not an error.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	waID := chi.URLParam(r, "waId")
	if waID == "" {
		h.Error(w, http.StatusBadRequest, "conversation id is required")
		return
	}

	messages, err := h.store.ListByConversation(r.Context(), waID)
	if err != nil {
		h.logger.Error().Err(err).Str("conversation_id", waID).Msg("failed to fetch messages")
		h.ErrorDetails(w, http.StatusInternalServerError, "failed to fetch messages", err.Error())
		return
	}

	h.JSON(w, http.StatusOK, messages)
}

// SendMessageRequest represents the send message request.
type SendMessageRequest struct {
	ConversationID string `json:"conversationId"`
	Type           string `json:"type"`
	Text           string `json:"text"`
	ContactName    string `json:"contactName,omitempty"`
}

// SendMessage stores a new outbound message and returns it. Transport to
// the external messaging network is an external collaborator; this
// endpoint only persists and publishes the message.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.ConversationID = strings.TrimSpace(req.ConversationID)
	if req.ConversationID == "" {
		h.Error(w, http.StatusBadRequest, "conversationId is required")
		return
	}
	if req.Text == "" {
		h.Error(w, http.StatusBadRequest, "text is required")
		return
	}
	if len(req.Text) > maxMessageBody {
		h.Error(w, http.StatusUnprocessableEntity, "text too long (max 4096 bytes)")
		return
	}

	kind := models.KindText
	if req.Type != "" {
		kind = models.KindOf(req.Type)
	}

	name := req.ContactName
	if name == "" {
		name = "+" + req.ConversationID
	}

	now := time.Now().UTC()
	msg := &models.Message{
		ID:             uuid.NewString(),
		ExternalID:     "out_" + ulid.Make().String(),
		ConversationID: req.ConversationID,
		Kind:           kind,
		Body:           req.Text,
		Timestamp:      now,
		Direction:      models.DirectionOutbound,
		Status:         models.StatusSent,
		ContactName:    name,
		CreatedAt:      now,
	}

	stored, err := h.store.UpsertByExternalID(r.Context(), msg)
	if err != nil {
		h.logger.Error().Err(err).Str("conversation_id", req.ConversationID).Msg("failed to store outbound message")
		h.ErrorDetails(w, http.StatusInternalServerError, "failed to send message", err.Error())
		return
	}

	h.invalidateSummaryCache(r.Context())
	metrics.MessagesSent.Inc()
	h.sink.Publish(events.Event{Type: events.TypeNewMessage, Data: stored})

	h.logger.Info().Str("message_id", stored.ExternalID).Str("conversation_id", stored.ConversationID).Msg("message sent")
	h.JSON(w, http.StatusCreated, stored)
}

func (h *Handler) invalidateSummaryCache(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidateContactSummaries(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("summary cache invalidation failed")
	}
}
