// Package events decouples write paths from delivery transports. The
// ingestion merger and the send endpoint publish to a Sink after each
// successful store write; whatever transport is mounted (SSE today)
// subscribes to a Hub. The core never assumes a particular mechanism.
package events

import (
	"sync"
)

// Event types published by the core.
const (
	TypeNewMessage   = "new_message"
	TypeStatusUpdate = "message_status_update"
)

// Event is one notification about a store write.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// StatusUpdate is the payload of a message_status_update event.
type StatusUpdate struct {
	ExternalID string `json:"externalId"`
	Status     string `json:"status"`
}

// Sink receives events after successful writes. Implementations must not
// block: publishing happens on the request path.
type Sink interface {
	Publish(evt Event)
}

// NopSink discards all events. Used when no transport is mounted.
type NopSink struct{}

func (NopSink) Publish(Event) {}

// Hub is an in-process Sink that fans events out to subscribers. Slow
// subscribers lose events rather than stall publishers.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Publish delivers evt to every subscriber, dropping it for any whose
// buffer is full.
func (h *Hub) Publish(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its channel plus a
// cancel function. The channel is closed on cancel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++

	ch := make(chan Event, 64)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
