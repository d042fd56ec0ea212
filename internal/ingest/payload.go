package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNotWebhookPayload is returned for JSON that does not carry the
// expected webhook shape. Callers skip such input; it is never fatal.
var ErrNotWebhookPayload = errors.New("ingest: not a webhook payload")

// EpochSeconds is an epoch-seconds timestamp. Origins encode it either as
// a JSON string or a bare number, so both are accepted.
type EpochSeconds string

func (e *EpochSeconds) UnmarshalJSON(b []byte) error {
	*e = EpochSeconds(strings.Trim(string(b), `"`))
	return nil
}

// Time converts the epoch-seconds value to a UTC instant.
func (e EpochSeconds) Time() (time.Time, error) {
	sec, err := strconv.ParseInt(string(e), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("ingest: bad timestamp %q: %w", string(e), err)
	}
	return time.Unix(sec, 0).UTC(), nil
}

// Payload is a normalized webhook batch: one or more entries of message
// and status events, plus provenance when it came from an archive dump.
type Payload struct {
	Entries   []Entry
	PayloadID string
}

// Entry is one webhook entry holding a list of changes.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change carries either inbound messages or status updates when its
// field is "messages"; other fields are ignored.
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value is the inner batch of a change.
type Value struct {
	MessagingProduct string         `json:"messaging_product"`
	Metadata         *Metadata      `json:"metadata"`
	Contacts         []Contact      `json:"contacts"`
	Messages         []MessageEvent `json:"messages"`
	Statuses         []StatusEvent  `json:"statuses"`
}

// Metadata identifies the receiving phone number.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Contact is a sender profile accompanying inbound messages.
type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// MessageEvent is one inbound message as delivered by the origin.
type MessageEvent struct {
	From      string        `json:"from"`
	ID        string        `json:"id"`
	Timestamp EpochSeconds  `json:"timestamp"`
	Type      string        `json:"type"`
	Text      *TextContent  `json:"text,omitempty"`
	Image     *MediaContent `json:"image,omitempty"`
	Document  *MediaContent `json:"document,omitempty"`
	Audio     *MediaContent `json:"audio,omitempty"`
}

// TextContent is the body of a text message.
type TextContent struct {
	Body string `json:"body"`
}

// MediaContent covers image, document and audio attachments.
type MediaContent struct {
	ID       string `json:"id,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
}

// StatusEvent is one delivery acknowledgement.
type StatusEvent struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	Timestamp   EpochSeconds `json:"timestamp"`
	RecipientID string       `json:"recipient_id"`
}

// envelope matches both payload shapes on the wire: the bare webhook
// delivery {entry: [...]} and the archived dump
// {payload_type: "whatsapp_webhook", _id, metaData: {entry: [...]}}.
type envelope struct {
	Object      string  `json:"object"`
	Entry       []Entry `json:"entry"`
	PayloadType string  `json:"payload_type"`
	ArchiveID   string  `json:"_id"`
	MetaData    *struct {
		Entry []Entry `json:"entry"`
	} `json:"metaData"`
}

// ParsePayload decodes either payload shape into a normalized Payload.
// Input that is valid JSON but not webhook-shaped yields
// ErrNotWebhookPayload.
func ParsePayload(data []byte) (*Payload, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("ingest: decode payload: %w", err)
	}

	switch {
	case len(env.Entry) > 0:
		return &Payload{Entries: env.Entry}, nil
	case env.PayloadType == "whatsapp_webhook" && env.MetaData != nil && len(env.MetaData.Entry) > 0:
		return &Payload{Entries: env.MetaData.Entry, PayloadID: env.ArchiveID}, nil
	default:
		return nil, ErrNotWebhookPayload
	}
}
