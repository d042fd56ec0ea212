package events

import (
	"testing"
)

func TestHubPublishSubscribe(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Publish(Event{Type: TypeNewMessage, Data: "hello"})

	evt := <-ch
	if evt.Type != TypeNewMessage || evt.Data != "hello" {
		t.Fatalf("unexpected event: %+v", evt)
	}
}

func TestHubFanout(t *testing.T) {
	hub := NewHub()

	ch1, cancel1 := hub.Subscribe()
	defer cancel1()
	ch2, cancel2 := hub.Subscribe()
	defer cancel2()

	hub.Publish(Event{Type: TypeStatusUpdate, Data: StatusUpdate{ExternalID: "wamid.1", Status: "read"}})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			if evt.Type != TypeStatusUpdate {
				t.Errorf("subscriber %d: unexpected event %+v", i, evt)
			}
		default:
			t.Errorf("subscriber %d: no event delivered", i)
		}
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe()
	if hub.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.Subscribers())
	}

	cancel()
	if hub.Subscribers() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", hub.Subscribers())
	}
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}

	// Double cancel is safe
	cancel()

	// Publishing with no subscribers is safe
	hub.Publish(Event{Type: TypeNewMessage})
}

func TestHubSlowSubscriberDropsEvents(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe()
	defer cancel()

	// Fill the buffer and keep publishing; the publisher must not block.
	for i := 0; i < 200; i++ {
		hub.Publish(Event{Type: TypeNewMessage, Data: i})
	}

	if got := len(ch); got != 64 {
		t.Fatalf("expected full buffer of 64, got %d", got)
	}
}
