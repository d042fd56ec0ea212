package models

import "time"

// Kind classifies the content of a message.
type Kind string

const (
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindDocument Kind = "document"
	KindAudio    Kind = "audio"
	KindOther    Kind = "other"
)

// KindOf normalizes an origin message type to a stored kind. Unrecognized
// types collapse to KindOther; the display body keeps the origin label.
func KindOf(t string) Kind {
	switch t {
	case "text":
		return KindText
	case "image":
		return KindImage
	case "document":
		return KindDocument
	case "audio":
		return KindAudio
	default:
		return KindOther
	}
}

// Direction tells whether a message was received or sent by us.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Status is the delivery state of a message. Transitions follow
// sent -> delivered -> read, but the store never enforces ordering:
// status callbacks can arrive before or after the message itself.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// Message is the sole persisted entity: one message exchanged with a
// counterparty, keyed for idempotent ingestion by ExternalID.
type Message struct {
	ID             string     `json:"id"`             // store-internal UUID
	ExternalID     string     `json:"externalId"`     // origin message id, unique
	AliasID        string     `json:"-"`              // secondary id some origins use in status callbacks
	ConversationID string     `json:"conversationId"` // counterparty wa_id (phone-number-like)
	Kind           Kind       `json:"kind"`
	Body           string     `json:"body"`
	Timestamp      time.Time  `json:"timestamp"` // event time reported by the origin
	Direction      Direction  `json:"direction"`
	Status         Status     `json:"status"`
	StatusTS       *time.Time `json:"statusTimestamp,omitempty"`
	ContactName    string     `json:"contactName"`
	CreatedAt      time.Time  `json:"createdAt"` // ingestion time, distinct from Timestamp

	// Provenance, for debugging batch ingestion.
	SourceFile string `json:"sourceFile,omitempty"`
	PayloadID  string `json:"payloadId,omitempty"`
}
