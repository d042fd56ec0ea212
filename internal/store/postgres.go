package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/models"
)

// PostgresStore handles PostgreSQL message storage.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool
// and initializes the schema.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	store := &PostgresStore{pool: pool}

	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		seq BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		id TEXT NOT NULL,
		external_id TEXT UNIQUE NOT NULL,
		alias_id TEXT NOT NULL DEFAULT '',
		conversation_id TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'text',
		body TEXT NOT NULL DEFAULT '',
		ts TIMESTAMPTZ NOT NULL,
		direction TEXT NOT NULL,
		status TEXT NOT NULL,
		status_ts TIMESTAMPTZ,
		contact_name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		source_file TEXT NOT NULL DEFAULT '',
		payload_id TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation_ts ON messages(conversation_id, ts);
	CREATE INDEX IF NOT EXISTS idx_messages_alias ON messages(alias_id) WHERE alias_id <> '';
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// UpsertByExternalID inserts or overwrites a message keyed by external id.
// The internal id, insertion order and created_at of an existing row are
// preserved; everything else is last-write-wins.
func (s *PostgresStore) UpsertByExternalID(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if msg.ConversationID == "" {
		return nil, ErrEmptyConversation
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	stored := &models.Message{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (id, external_id, alias_id, conversation_id, kind, body, ts,
			direction, status, status_ts, contact_name, created_at, source_file, payload_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (external_id) DO UPDATE SET
			alias_id = EXCLUDED.alias_id,
			conversation_id = EXCLUDED.conversation_id,
			kind = EXCLUDED.kind,
			body = EXCLUDED.body,
			ts = EXCLUDED.ts,
			direction = EXCLUDED.direction,
			status = EXCLUDED.status,
			status_ts = EXCLUDED.status_ts,
			contact_name = EXCLUDED.contact_name,
			source_file = EXCLUDED.source_file,
			payload_id = EXCLUDED.payload_id
		RETURNING id, external_id, alias_id, conversation_id, kind, body, ts,
			direction, status, status_ts, contact_name, created_at, source_file, payload_id
	`, msg.ID, msg.ExternalID, msg.AliasID, msg.ConversationID, msg.Kind, msg.Body, msg.Timestamp,
		msg.Direction, msg.Status, msg.StatusTS, msg.ContactName, msg.CreatedAt, msg.SourceFile, msg.PayloadID,
	).Scan(
		&stored.ID,
		&stored.ExternalID,
		&stored.AliasID,
		&stored.ConversationID,
		&stored.Kind,
		&stored.Body,
		&stored.Timestamp,
		&stored.Direction,
		&stored.Status,
		&stored.StatusTS,
		&stored.ContactName,
		&stored.CreatedAt,
		&stored.SourceFile,
		&stored.PayloadID,
	)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// ApplyStatus updates the status of all messages matching the external id
// or its alias and returns the matched count. Zero matches is not an error.
func (s *PostgresStore) ApplyStatus(ctx context.Context, externalID string, status models.Status, statusTS time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages
		SET status = $2, status_ts = $3
		WHERE external_id = $1 OR (alias_id <> '' AND alias_id = $1)
	`, externalID, status, statusTS)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListByConversation returns one conversation's messages, oldest first.
func (s *PostgresStore) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, external_id, alias_id, conversation_id, kind, body, ts,
			direction, status, status_ts, contact_name, created_at, source_file, payload_id
		FROM messages
		WHERE conversation_id = $1
		ORDER BY ts ASC, seq ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ExternalID,
			&msg.AliasID,
			&msg.ConversationID,
			&msg.Kind,
			&msg.Body,
			&msg.Timestamp,
			&msg.Direction,
			&msg.Status,
			&msg.StatusTS,
			&msg.ContactName,
			&msg.CreatedAt,
			&msg.SourceFile,
			&msg.PayloadID,
		); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// ContactSummaries computes the latest message and unread count per
// conversation. Two single-statement reads merged in assembleSummaries;
// no transaction is needed since each read is internally consistent.
func (s *PostgresStore) ContactSummaries(ctx context.Context) ([]models.ContactSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (conversation_id) conversation_id, contact_name, body, ts
		FROM messages
		ORDER BY conversation_id, ts DESC, seq DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var latest []latestRow
	for rows.Next() {
		var row latestRow
		if err := rows.Scan(&row.ConversationID, &row.ContactName, &row.Body, &row.Timestamp); err != nil {
			return nil, err
		}
		latest = append(latest, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	unreadRows, err := s.pool.Query(ctx, `
		SELECT conversation_id, COUNT(*)
		FROM messages
		WHERE direction = 'inbound' AND status <> 'read'
		GROUP BY conversation_id
	`)
	if err != nil {
		return nil, err
	}
	defer unreadRows.Close()

	unread := make(map[string]int)
	for unreadRows.Next() {
		var conversationID string
		var count int
		if err := unreadRows.Scan(&conversationID, &count); err != nil {
			return nil, err
		}
		unread[conversationID] = count
	}
	if err := unreadRows.Err(); err != nil {
		return nil, err
	}

	return assembleSummaries(latest, unread, time.Now().UTC()), nil
}
