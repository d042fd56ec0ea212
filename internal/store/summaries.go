package store

import (
	"sort"
	"time"

	"github.com/nikibhoyar/Whatsapp-Web-Clone/internal/models"
)

// noMessagesBody is substituted when the latest message of a conversation
// has an empty body, so the contact list never renders a blank preview.
const noMessagesBody = "No messages yet"

// latestRow is the newest message of one conversation as read from the
// database. Name, body and timestamp may be missing for malformed rows.
type latestRow struct {
	ConversationID string
	ContactName    string
	Body           string
	Timestamp      *time.Time
}

// assembleSummaries merges the latest-message rows with the per-conversation
// unread counts and applies the never-null display fallbacks:
//
//   - empty contact name   -> "+" + conversation id
//   - empty body           -> "No messages yet"
//   - missing timestamp    -> now (accepted staleness trade-off)
//
// Rows with an empty conversation id are dropped as malformed. The result is
// ordered by last message timestamp descending. Shared by both store
// implementations so the projection semantics cannot drift between backends.
func assembleSummaries(rows []latestRow, unread map[string]int, now time.Time) []models.ContactSummary {
	summaries := make([]models.ContactSummary, 0, len(rows))
	for _, row := range rows {
		if row.ConversationID == "" {
			continue
		}

		name := row.ContactName
		if name == "" {
			name = "+" + row.ConversationID
		}

		body := row.Body
		if body == "" {
			body = noMessagesBody
		}

		ts := now
		if row.Timestamp != nil {
			ts = *row.Timestamp
		}

		count := unread[row.ConversationID]
		if count < 0 {
			count = 0
		}

		summaries = append(summaries, models.ContactSummary{
			ConversationID:       row.ConversationID,
			DisplayName:          name,
			LastMessageBody:      body,
			LastMessageTimestamp: ts,
			UnreadCount:          count,
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastMessageTimestamp.After(summaries[j].LastMessageTimestamp)
	})

	return summaries
}
