package events

import (
	"testing"
	"time"

	"github.com/Abdo-hisham/rl-project/internal/shared"
)

func TestBusDeliversToSubscriber(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.Subscribe()
	bus.Emit(shared.Event{Type: shared.EventTrainingStarted, SessionID: "s1"})

	select {
	case event := <-sub.C:
		if event.Type != shared.EventTrainingStarted || event.SessionID != "s1" {
			t.Fatalf("unexpected event %+v", event)
		}
		if event.Timestamp == 0 {
			t.Fatal("emit should stamp the event")
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestBusFiltersByType(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.Subscribe(shared.EventTrainingCompleted)
	bus.Emit(shared.Event{Type: shared.EventTrainingProgress})
	bus.Emit(shared.Event{Type: shared.EventTrainingCompleted})

	select {
	case event := <-sub.C:
		if event.Type != shared.EventTrainingCompleted {
			t.Fatalf("filter leaked %q", event.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	select {
	case event, ok := <-sub.C:
		if ok {
			t.Fatalf("unexpected second event %+v", event)
		}
	default:
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.Subscribe()
	bus.Unsubscribe(sub)

	if _, ok := <-sub.C; ok {
		t.Fatal("unsubscribed channel should be closed")
	}

	// Double unsubscribe is a no-op.
	bus.Unsubscribe(sub)
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus(WithBufferSize(1))
	defer bus.Close()

	sub := bus.Subscribe()
	bus.Emit(shared.Event{Type: shared.EventTrainingProgress, SessionID: "first"})
	bus.Emit(shared.Event{Type: shared.EventTrainingProgress, SessionID: "dropped"})

	event := <-sub.C
	if event.SessionID != "first" {
		t.Fatalf("kept %q, want the first event", event.SessionID)
	}
	select {
	case event := <-sub.C:
		t.Fatalf("overflow event %+v should have been dropped", event)
	default:
	}
}

func TestBusHandlersRunSynchronously(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var seen []shared.EventType
	bus.On(func(event shared.Event) {
		seen = append(seen, event.Type)
	})

	bus.Emit(shared.Event{Type: shared.EventTrainingStarted})
	bus.Emit(shared.Event{Type: shared.EventTrainingCompleted})

	if len(seen) != 2 || seen[0] != shared.EventTrainingStarted || seen[1] != shared.EventTrainingCompleted {
		t.Fatalf("handler saw %v", seen)
	}
}

func TestBusCloseStopsDelivery(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	bus.Close()

	if _, ok := <-sub.C; ok {
		t.Fatal("close should close subscriber channels")
	}

	// Emit and Close after Close are no-ops.
	bus.Emit(shared.Event{Type: shared.EventTrainingProgress})
	bus.Close()

	late := bus.Subscribe()
	if _, ok := <-late.C; ok {
		t.Fatal("subscriptions on a closed bus should be closed immediately")
	}
}
