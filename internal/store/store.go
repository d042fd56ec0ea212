package store

import (
	"context"
	"errors"
	"time"

	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/models"
)

// ErrEmptyConversation is returned when an upsert carries no conversation id.
// A message that belongs to no conversation can never be displayed, so the
// store refuses to persist it.
var ErrEmptyConversation = errors.New("store: conversation id must not be empty")

// MessageStore defines the interface for persistent storage of messages.
// Both PostgresStore and SQLiteStore implement this interface.
//
// Every write is a single atomic statement keyed by external id; the
// interface never requires multi-record transactions.
type MessageStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// UpsertByExternalID inserts the message or, if a record with the same
	// ExternalID exists, overwrites its mutable fields (last write wins).
	// Identity fields (internal id, insertion order, created_at) survive
	// re-ingestion. Safe to call any number of times with the same event.
	UpsertByExternalID(ctx context.Context, msg *models.Message) (*models.Message, error)

	// ApplyStatus updates the delivery status of every message whose
	// external id or alias id equals externalID and reports how many were
	// matched. Zero matches is a normal outcome, not an error: status
	// callbacks may reference messages that never arrived.
	ApplyStatus(ctx context.Context, externalID string, status models.Status, statusTS time.Time) (int64, error)

	// ListByConversation returns the full thread for one conversation,
	// ordered by event timestamp ascending, ties broken by insertion order.
	// An unknown conversation yields an empty slice.
	ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error)

	// ContactSummaries returns one summary per conversation, ordered by
	// last message timestamp descending.
	ContactSummaries(ctx context.Context) ([]models.ContactSummary, error)
}
