// Package events fans duty-cycle transitions out to diagnostic consumers.
// Delivery is asynchronous so a slow consumer never stalls the control loop.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case RelayChanged:
		event.Publish(b.dispatcher, e)
	case ScheduleDropped:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler type selects the event type. Returns an unsubscribe function;
// unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e RelayChanged) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(RelayChanged):
		return event.Subscribe(b.dispatcher, h)
	case func(ScheduleDropped):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// Close stops delivery to all subscribers.
func (b *Bus) Close() error {
	return b.dispatcher.Close()
}
