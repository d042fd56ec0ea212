package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/events"
	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/metrics"
	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/models"
	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/store"
)

// Failure records one skipped item. One bad event never aborts a batch.
type Failure struct {
	Kind string `json:"kind"` // "message" or "status"
	ID   string `json:"id"`
	Err  string `json:"error"`
}

// Result reports what one payload produced.
type Result struct {
	Messages int       `json:"messages"`
	Statuses int       `json:"statuses"`
	Failures []Failure `json:"failures,omitempty"`
}

func (r *Result) merge(other Result) {
	r.Messages += other.Messages
	r.Statuses += other.Statuses
	r.Failures = append(r.Failures, other.Failures...)
}

// Merger converts webhook payloads into idempotent store writes. Re-running
// the same payload produces no duplicates and no net state change, because
// every message write is keyed by its external id.
type Merger struct {
	store  store.MessageStore
	sink   events.Sink
	logger zerolog.Logger
}

// NewMerger creates a merger. A nil sink disables event publication.
func NewMerger(st store.MessageStore, sink events.Sink, logger zerolog.Logger) *Merger {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Merger{store: st, sink: sink, logger: logger}
}

// Process applies one payload to the store. Items are isolated: a failing
// message or status is logged, counted and skipped. source names the
// payload file for provenance; empty for live webhook deliveries.
func (m *Merger) Process(ctx context.Context, payload *Payload, source string) Result {
	var res Result

	for _, entry := range payload.Entries {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			res.merge(m.processValue(ctx, &change.Value, payload.PayloadID, source))
		}
	}

	return res
}

func (m *Merger) processValue(ctx context.Context, value *Value, payloadID, source string) Result {
	var res Result

	for i := range value.Messages {
		event := &value.Messages[i]
		if err := m.upsertMessage(ctx, event, value.Contacts, payloadID, source); err != nil {
			m.logger.Warn().Err(err).Str("message_id", event.ID).Msg("skipping inbound message")
			metrics.IngestFailures.WithLabelValues("message").Inc()
			res.Failures = append(res.Failures, Failure{Kind: "message", ID: event.ID, Err: err.Error()})
			continue
		}
		res.Messages++
	}

	for i := range value.Statuses {
		event := &value.Statuses[i]
		if err := m.applyStatus(ctx, event); err != nil {
			m.logger.Warn().Err(err).Str("status_id", event.ID).Msg("skipping status update")
			metrics.IngestFailures.WithLabelValues("status").Inc()
			res.Failures = append(res.Failures, Failure{Kind: "status", ID: event.ID, Err: err.Error()})
			continue
		}
		res.Statuses++
	}

	return res
}

// upsertMessage maps one inbound message event to a store upsert and
// publishes a new_message event on success.
func (m *Merger) upsertMessage(ctx context.Context, event *MessageEvent, contacts []Contact, payloadID, source string) error {
	if event.ID == "" {
		return fmt.Errorf("ingest: message has no id")
	}

	ts, err := event.Timestamp.Time()
	if err != nil {
		return err
	}

	msg := &models.Message{
		ExternalID:     event.ID,
		ConversationID: event.From,
		Kind:           models.KindOf(event.Type),
		Body:           bodyOf(event),
		Timestamp:      ts,
		Direction:      models.DirectionInbound,
		Status:         models.StatusDelivered,
		ContactName:    contactName(contacts, event.From),
		SourceFile:     source,
		PayloadID:      payloadID,
	}

	stored, err := m.store.UpsertByExternalID(ctx, msg)
	if err != nil {
		return err
	}

	metrics.MessagesIngested.WithLabelValues(string(stored.Kind)).Inc()
	m.sink.Publish(events.Event{Type: events.TypeNewMessage, Data: stored})
	return nil
}

// applyStatus maps one status event to a store update. Matching zero
// messages is a normal outcome: the acknowledged message may simply never
// have been delivered to us.
func (m *Merger) applyStatus(ctx context.Context, event *StatusEvent) error {
	if event.ID == "" {
		return fmt.Errorf("ingest: status has no id")
	}

	ts, err := event.Timestamp.Time()
	if err != nil {
		return err
	}

	matched, err := m.store.ApplyStatus(ctx, event.ID, models.Status(event.Status), ts)
	if err != nil {
		return err
	}

	metrics.StatusesApplied.WithLabelValues(event.Status).Inc()
	if matched == 0 {
		m.logger.Debug().Str("status_id", event.ID).Msg("status update matched no messages")
		return nil
	}

	m.sink.Publish(events.Event{
		Type: events.TypeStatusUpdate,
		Data: events.StatusUpdate{ExternalID: event.ID, Status: event.Status},
	})
	return nil
}

// contactName resolves the sender's display name from the payload contact
// list, falling back to "+" + sender id.
func contactName(contacts []Contact, from string) string {
	for _, c := range contacts {
		if c.WaID == from && c.Profile.Name != "" {
			return c.Profile.Name
		}
	}
	return "+" + from
}

// bodyOf resolves the display body for a message event. Media without a
// caption gets a bracketed placeholder; unrecognized types keep their
// origin type name in the label.
func bodyOf(event *MessageEvent) string {
	switch event.Type {
	case "text":
		if event.Text != nil {
			return event.Text.Body
		}
		return ""
	case "image":
		if event.Image != nil && event.Image.Caption != "" {
			return event.Image.Caption
		}
		return "[Image]"
	case "document":
		if event.Document != nil && event.Document.Caption != "" {
			return event.Document.Caption
		}
		filename := "file"
		if event.Document != nil && event.Document.Filename != "" {
			filename = event.Document.Filename
		}
		return fmt.Sprintf("[Document: %s]", filename)
	case "audio":
		return "[Voice Message]"
	default:
		return fmt.Sprintf("[%s message]", event.Type)
	}
}
