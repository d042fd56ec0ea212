package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/events"
	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/models"
	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/store"
)

const inboundPayload = `{
	"entry": [{
		"changes": [{
			"field": "messages",
			"value": {
				"contacts": [{"profile": {"name": "Ravi Kumar"}, "wa_id": "919937320320"}],
				"messages": [{
					"from": "919937320320",
					"id": "wamid.1",
					"timestamp": "1756461600",
					"type": "text",
					"text": {"body": "Hi"}
				}]
			}
		}]
	}]
}`

func statusPayload(id, status string) string {
	return `{
		"entry": [{
			"changes": [{
				"field": "messages",
				"value": {
					"statuses": [{"id": "` + id + `", "status": "` + status + `", "timestamp": "1756461700", "recipient_id": "919937320320"}]
				}
			}]
		}]
	}`
}

func newTestHandler(t *testing.T) (*Handler, *events.Hub) {
	t.Helper()

	s, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(s.Close)

	hub := events.NewHub()
	return NewHandler(s, nil, hub, zerolog.Nop()), hub
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode json: %v body=%q", err, rr.Body.String())
	}
}

func postWebhook(t *testing.T, h *Handler, payload string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	rr := httptest.NewRecorder()
	h.Webhook(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("webhook: expected 200, got %d body=%q", rr.Code, rr.Body.String())
	}
	var ack map[string]bool
	decodeJSON(t, rr, &ack)
	if !ack["success"] {
		t.Fatalf("webhook: expected success ack, got %q", rr.Body.String())
	}
}

func listContacts(t *testing.T, h *Handler) []models.ContactSummary {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	rr := httptest.NewRecorder()
	h.ListContacts(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("contacts: expected 200, got %d body=%q", rr.Code, rr.Body.String())
	}
	var summaries []models.ContactSummary
	decodeJSON(t, rr, &summaries)
	return summaries
}

func TestWebhookThenContacts(t *testing.T) {
	h, _ := newTestHandler(t)

	postWebhook(t, h, inboundPayload)

	summaries := listContacts(t, h)
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}

	got := summaries[0]
	if got.ConversationID != "919937320320" ||
		got.DisplayName != "Ravi Kumar" ||
		got.LastMessageBody != "Hi" ||
		got.UnreadCount != 1 {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestReadReceiptClearsUnread(t *testing.T) {
	h, _ := newTestHandler(t)

	postWebhook(t, h, inboundPayload)
	postWebhook(t, h, statusPayload("wamid.1", "read"))

	summaries := listContacts(t, h)
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].UnreadCount != 0 {
		t.Fatalf("expected unread 0 after read receipt, got %d", summaries[0].UnreadCount)
	}
}

func TestStatusForUnknownMessageCreatesNothing(t *testing.T) {
	h, _ := newTestHandler(t)

	postWebhook(t, h, statusPayload("wamid.ghost", "read"))

	if summaries := listContacts(t, h); len(summaries) != 0 {
		t.Fatalf("expected no conversations, got %+v", summaries)
	}
}

func TestWebhookAcksGarbage(t *testing.T) {
	h, _ := newTestHandler(t)

	// Unparseable body and non-webhook JSON are both acked
	postWebhook(t, h, `{definitely not json`)
	postWebhook(t, h, `{"hello": "world"}`)

	if summaries := listContacts(t, h); len(summaries) != 0 {
		t.Fatalf("expected nothing stored, got %+v", summaries)
	}
}

func TestWebhookIsIdempotent(t *testing.T) {
	h, _ := newTestHandler(t)

	postWebhook(t, h, inboundPayload)
	postWebhook(t, h, inboundPayload)

	req := httptest.NewRequest(http.MethodGet, "/messages/919937320320", nil)
	req = withURLParam(req, "waId", "919937320320")
	rr := httptest.NewRecorder()
	h.ListMessages(rr, req)

	var messages []models.Message
	decodeJSON(t, rr, &messages)
	if len(messages) != 1 {
		t.Fatalf("expected 1 message after duplicate delivery, got %d", len(messages))
	}
}

func TestListMessagesUnknownConversation(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/messages/nobody", nil)
	req = withURLParam(req, "waId", "nobody")
	rr := httptest.NewRecorder()
	h.ListMessages(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown conversation, got %d", rr.Code)
	}
	var messages []models.Message
	decodeJSON(t, rr, &messages)
	if len(messages) != 0 {
		t.Fatalf("expected empty thread, got %d", len(messages))
	}
}

func TestSendMessage(t *testing.T) {
	h, hub := newTestHandler(t)

	ch, cancel := hub.Subscribe()
	defer cancel()

	body := `{"conversationId": "12345", "type": "text", "text": "Hello"}`
	req := httptest.NewRequest(http.MethodPost, "/messages/send", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.SendMessage(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%q", rr.Code, rr.Body.String())
	}

	var msg models.Message
	decodeJSON(t, rr, &msg)
	if msg.Direction != models.DirectionOutbound || msg.Status != models.StatusSent {
		t.Errorf("expected outbound/sent, got %q/%q", msg.Direction, msg.Status)
	}
	if msg.ExternalID == "" || msg.ID == "" {
		t.Errorf("expected generated ids, got %+v", msg)
	}
	if msg.ContactName != "+12345" {
		t.Errorf("expected contact name fallback, got %q", msg.ContactName)
	}

	// The new conversation shows up in the contact list
	summaries := listContacts(t, h)
	if len(summaries) != 1 || summaries[0].ConversationID != "12345" || summaries[0].LastMessageBody != "Hello" {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
	if summaries[0].UnreadCount != 0 {
		t.Errorf("own message must not be unread, got %d", summaries[0].UnreadCount)
	}

	// A new_message event was published
	select {
	case evt := <-ch:
		if evt.Type != events.TypeNewMessage {
			t.Errorf("expected new_message event, got %q", evt.Type)
		}
	case <-time.After(time.Second):
		t.Error("expected an event on the hub")
	}
}

func TestSendMessageValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"missing conversation", `{"text": "hi"}`, http.StatusBadRequest},
		{"missing text", `{"conversationId": "12345"}`, http.StatusBadRequest},
		{"oversized text", `{"conversationId": "12345", "text": "` + strings.Repeat("a", 5000) + `"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/messages/send", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			h.SendMessage(rr, req)
			if rr.Code != tt.code {
				t.Fatalf("expected %d, got %d body=%q", tt.code, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestContactsSummaryCache(t *testing.T) {
	s, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)

	mr := miniredis.RunT(t)
	cache := store.NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	h := NewHandler(s, cache, nil, zerolog.Nop())

	postWebhook(t, h, inboundPayload)
	if summaries := listContacts(t, h); len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}

	// A write that bypasses the API does not invalidate the cache, so the
	// cached projection is served until TTL or the next webhook.
	_, err = s.UpsertByExternalID(context.Background(), &models.Message{
		ExternalID:     "wamid.side",
		ConversationID: "555",
		Kind:           models.KindText,
		Body:           "side channel",
		Timestamp:      time.Now().UTC(),
		Direction:      models.DirectionInbound,
		Status:         models.StatusDelivered,
	})
	if err != nil {
		t.Fatal(err)
	}
	if summaries := listContacts(t, h); len(summaries) != 1 {
		t.Fatalf("expected stale cache hit with 1 summary, got %d", len(summaries))
	}

	// A webhook delivery invalidates, so the next read sees everything
	postWebhook(t, h, statusPayload("wamid.1", "read"))
	summaries := listContacts(t, h)
	if len(summaries) != 2 {
		t.Fatalf("expected fresh projection with 2 summaries, got %d", len(summaries))
	}
}

// errStore fails every operation, for infrastructure-failure paths.
type errStore struct{}

var _ store.MessageStore = errStore{}

func (errStore) Close()                         {}
func (errStore) Ping(ctx context.Context) error { return errors.New("store down") }
func (errStore) UpsertByExternalID(ctx context.Context, msg *models.Message) (*models.Message, error) {
	return nil, errors.New("store down")
}
func (errStore) ApplyStatus(ctx context.Context, externalID string, status models.Status, statusTS time.Time) (int64, error) {
	return 0, errors.New("store down")
}
func (errStore) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	return nil, errors.New("store down")
}
func (errStore) ContactSummaries(ctx context.Context) ([]models.ContactSummary, error) {
	return nil, errors.New("store down")
}

func TestStoreFailuresAreNotMasked(t *testing.T) {
	h := NewHandler(errStore{}, nil, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	rr := httptest.NewRecorder()
	h.ListContacts(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("contacts: expected 500, got %d", rr.Code)
	}
	var body map[string]string
	decodeJSON(t, rr, &body)
	if body["error"] == "" || body["details"] == "" {
		t.Fatalf("expected error and details, got %v", body)
	}

	req = httptest.NewRequest(http.MethodGet, "/messages/111", nil)
	req = withURLParam(req, "waId", "111")
	rr = httptest.NewRecorder()
	h.ListMessages(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("messages: expected 500, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/messages/send", strings.NewReader(`{"conversationId": "1", "text": "x"}`))
	rr = httptest.NewRecorder()
	h.SendMessage(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("send: expected 500, got %d", rr.Code)
	}

	// The webhook still acks even when the store is down
	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(inboundPayload))
	rr = httptest.NewRecorder()
	h.Webhook(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("webhook: expected 200, got %d", rr.Code)
	}
}

func TestHealthDegradedWhenStoreDown(t *testing.T) {
	h := NewHandler(errStore{}, nil, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.Health(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var resp HealthResponse
	decodeJSON(t, rr, &resp)
	if resp.Status != "degraded" || resp.Checks["store"].Status != "fail" {
		t.Fatalf("unexpected health: %+v", resp)
	}
}

func TestEventsStream(t *testing.T) {
	h, hub := newTestHandler(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	rr := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.Events(rr, req)
		close(done)
	}()

	// Wait for the subscription before publishing
	deadline := time.Now().Add(time.Second)
	for hub.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(time.Millisecond)
	}

	hub.Publish(events.Event{Type: events.TypeNewMessage, Data: map[string]string{"body": "Hi"}})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rr.Body.String()
	if !strings.Contains(body, "event: new_message") || !strings.Contains(body, `"body":"Hi"`) {
		t.Fatalf("unexpected stream output: %q", body)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
}
