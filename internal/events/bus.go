package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher. Delivery is asynchronous: each
// subscriber receives events on its own goroutine, in publish order.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish delivers ev to every subscriber of its concrete type. Publishing on
// a nil bus does nothing, so components can run without one.
// Usage: bus.Publish(HeartbeatEvent{...})
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	switch e := ev.(type) {
	case ConnectedEvent:
		event.Publish(b.dispatcher, e)
	case HeartbeatEvent:
		event.Publish(b.dispatcher, e)
	case SettingAppliedEvent:
		event.Publish(b.dispatcher, e)
	case IndicatorChangedEvent:
		event.Publish(b.dispatcher, e)
	case LoopStateEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type named by its parameter and
// returns the unsubscribe function. Unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e HeartbeatEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ConnectedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(HeartbeatEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SettingAppliedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(IndicatorChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LoopStateEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// SubscribeToChannel forwards events of type T into ch without blocking the
// dispatcher; events are dropped while ch is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
