package events

import (
	"encoding/json"
	"testing"
)

func TestEventBusPublishJSON(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	bus.Subscribe(EventBookingCommitted, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	payload := BookingEventPayload{BookingID: 42, Reference: "BK-TEST-1", Status: "pending"}
	if err := bus.PublishJSON(EventBookingCommitted, payload); err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if received.Type != EventBookingCommitted {
		t.Errorf("expected type %s, got %s", EventBookingCommitted, received.Type)
	}
	if received.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}

	var decoded BookingEventPayload
	if err := json.Unmarshal(received.Payload, &decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.BookingID != 42 || decoded.Reference != "BK-TEST-1" {
		t.Errorf("unexpected payload: %+v", decoded)
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe(EventBookingCancelled, func(_ *Event) error { count1++; return nil })
	bus.Subscribe(EventBookingCancelled, func(_ *Event) error { count2++; return nil })

	bus.Publish(&Event{Type: EventBookingCancelled})

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both handlers to be called once, got %d and %d", count1, count2)
	}
}

func TestEventBusSubscriberIsolation(t *testing.T) {
	bus := NewEventBus()
	var expiredCalls int

	bus.Subscribe(EventBookingExpired, func(_ *Event) error { expiredCalls++; return nil })
	bus.Publish(&Event{Type: EventBookingConfirmed})

	if expiredCalls != 0 {
		t.Errorf("handler for another event type was called %d times", expiredCalls)
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	// Should not panic
	bus.Publish(&Event{Type: EventBookingNoShow})
	if err := bus.PublishJSON(EventBookingNoShow, nil); err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}
}

func TestEventBusNilReceiver(t *testing.T) {
	var bus *EventBus
	if err := bus.PublishJSON(EventBookingCompleted, BookingEventPayload{}); err != nil {
		t.Errorf("nil bus PublishJSON failed: %v", err)
	}
}
