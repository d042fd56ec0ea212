package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/models"
)

// SQLiteStore handles SQLite message storage. It is the development and
// single-node fallback when no PostgreSQL URL is configured.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/waweb.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/waweb.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		external_id TEXT UNIQUE NOT NULL,
		alias_id TEXT NOT NULL DEFAULT '',
		conversation_id TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'text',
		body TEXT NOT NULL DEFAULT '',
		ts TIMESTAMP NOT NULL,
		direction TEXT NOT NULL,
		status TEXT NOT NULL,
		status_ts TIMESTAMP,
		contact_name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		source_file TEXT NOT NULL DEFAULT '',
		payload_id TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation_ts ON messages(conversation_id, ts);
	CREATE INDEX IF NOT EXISTS idx_messages_alias ON messages(alias_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertByExternalID inserts or overwrites a message keyed by external id.
func (s *SQLiteStore) UpsertByExternalID(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if msg.ConversationID == "" {
		return nil, ErrEmptyConversation
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO messages (id, external_id, alias_id, conversation_id, kind, body, ts,
			direction, status, status_ts, contact_name, created_at, source_file, payload_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			alias_id = excluded.alias_id,
			conversation_id = excluded.conversation_id,
			kind = excluded.kind,
			body = excluded.body,
			ts = excluded.ts,
			direction = excluded.direction,
			status = excluded.status,
			status_ts = excluded.status_ts,
			contact_name = excluded.contact_name,
			source_file = excluded.source_file,
			payload_id = excluded.payload_id
		RETURNING id, external_id, alias_id, conversation_id, kind, body, ts,
			direction, status, status_ts, contact_name, created_at, source_file, payload_id
	`, msg.ID, msg.ExternalID, msg.AliasID, msg.ConversationID, string(msg.Kind), msg.Body, msg.Timestamp.UTC(),
		string(msg.Direction), string(msg.Status), nullableTime(msg.StatusTS), msg.ContactName, msg.CreatedAt.UTC(),
		msg.SourceFile, msg.PayloadID)

	return scanMessage(row)
}

// ApplyStatus updates the status of all messages matching the external id
// or its alias and returns the matched count.
func (s *SQLiteStore) ApplyStatus(ctx context.Context, externalID string, status models.Status, statusTS time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages
		SET status = ?, status_ts = ?
		WHERE external_id = ? OR (alias_id <> '' AND alias_id = ?)
	`, string(status), statusTS.UTC(), externalID, externalID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByConversation returns one conversation's messages, oldest first.
func (s *SQLiteStore) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, external_id, alias_id, conversation_id, kind, body, ts,
			direction, status, status_ts, contact_name, created_at, source_file, payload_id
		FROM messages
		WHERE conversation_id = ?
		ORDER BY ts ASC, seq ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

// ContactSummaries computes the latest message and unread count per
// conversation, merged through the shared assembleSummaries helper.
func (s *SQLiteStore) ContactSummaries(ctx context.Context) ([]models.ContactSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.conversation_id, m.contact_name, m.body, m.ts
		FROM messages m
		WHERE m.seq = (
			SELECT o.seq FROM messages o
			WHERE o.conversation_id = m.conversation_id
			ORDER BY o.ts DESC, o.seq DESC
			LIMIT 1
		)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var latest []latestRow
	for rows.Next() {
		var row latestRow
		var ts sql.NullTime
		if err := rows.Scan(&row.ConversationID, &row.ContactName, &row.Body, &ts); err != nil {
			return nil, err
		}
		if ts.Valid {
			t := ts.Time
			row.Timestamp = &t
		}
		latest = append(latest, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	unreadRows, err := s.db.QueryContext(ctx, `
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

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	msg := &models.Message{}
	var statusTS sql.NullTime
	err := row.Scan(
		&msg.ID,
		&msg.ExternalID,
		&msg.AliasID,
		&msg.ConversationID,
		&msg.Kind,
		&msg.Body,
		&msg.Timestamp,
		&msg.Direction,
		&msg.Status,
		&statusTS,
		&msg.ContactName,
		&msg.CreatedAt,
		&msg.SourceFile,
		&msg.PayloadID,
	)
	if err != nil {
		return nil, err
	}
	if statusTS.Valid {
		t := statusTS.Time
		msg.StatusTS = &t
	}
	return msg, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
