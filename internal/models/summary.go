package models

import "time"

// ContactSummary is the denormalized per-conversation view the contact
// list renders: latest message plus unread count.
//
// The display fields are never empty: DisplayName falls back to
// "+"+ConversationID, LastMessageBody to "No messages yet" and
// LastMessageTimestamp to the query instant.
type ContactSummary struct {
	ConversationID       string    `json:"conversationId"`
	DisplayName          string    `json:"displayName"`
	LastMessageBody      string    `json:"lastMessageBody"`
	LastMessageTimestamp time.Time `json:"lastMessageTimestamp"`
	UnreadCount          int       `json:"unreadCount"`
}
