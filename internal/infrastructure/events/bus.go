// Package events provides the publish/subscribe bus that carries training
// events from sessions to observers.
package events

import (
	"sync"

	"github.com/Abdo-hisham/rl-project/internal/shared"
)

// Handler is a function invoked for each matching event.
type Handler func(event shared.Event)

// Subscription is a registered event receiver. C delivers matching events in
// emission order until the subscription is removed or the bus closes.
type Subscription struct {
	id    int
	types map[shared.EventType]struct{} // empty matches every type
	C     <-chan shared.Event
	ch    chan shared.Event
}

func (s *Subscription) matches(eventType shared.EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[eventType]
	return ok
}

// Bus fans events out to subscriber channels and handlers.
type Bus struct {
	mu            sync.RWMutex
	nextID        int
	subscriptions map[int]*Subscription
	handlers      []Handler
	bufferSize    int
	closed        bool
}

// Option configures the Bus.
type Option func(*Bus)

// WithBufferSize sets the subscription channel buffer size.
func WithBufferSize(size int) Option {
	return func(b *Bus) {
		b.bufferSize = size
	}
}

// NewBus creates a new event bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subscriptions: make(map[int]*Subscription),
		bufferSize:    256,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a channel receiving the given event types; with no
// types it receives every event.
func (b *Bus) Subscribe(types ...shared.EventType) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan shared.Event, b.bufferSize)
	sub := &Subscription{
		id:    b.nextID,
		types: make(map[shared.EventType]struct{}, len(types)),
		C:     ch,
		ch:    ch,
	}
	for _, t := range types {
		sub.types[t] = struct{}{}
	}
	b.nextID++
	if b.closed {
		close(ch)
		return sub
	}
	b.subscriptions[sub.id] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if registered, ok := b.subscriptions[sub.id]; ok {
		delete(b.subscriptions, sub.id)
		close(registered.ch)
	}
}

// On registers a handler invoked synchronously for every event.
func (b *Bus) On(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Emit publishes an event to all matching subscriptions and handlers. Sends
// to full subscription channels are dropped rather than blocking the
// emitting session.
func (b *Bus) Emit(event shared.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = shared.Now()
	}

	for _, sub := range b.subscriptions {
		if !sub.matches(event.Type) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	for _, handler := range b.handlers {
		handler(event)
	}
}

// Close closes every subscription channel and stops the bus.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subscriptions {
		close(sub.ch)
	}
	b.subscriptions = make(map[int]*Subscription)
	b.handlers = nil
}
