package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for in-process event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(PreviewStartedEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event dispatches on the concrete type, so each event type
	// needs its own Publish call.
	switch e := ev.(type) {
	case PreviewStartedEvent:
		event.Publish(b.dispatcher, e)
	case PreviewStoppedEvent:
		event.Publish(b.dispatcher, e)
	case DeviceDisconnectedEvent:
		event.Publish(b.dispatcher, e)
	case DeviceErrorEvent:
		event.Publish(b.dispatcher, e)
	case SessionStateEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes a typed handler function; the handler's argument type
// determines which events it receives. Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e PreviewStartedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(PreviewStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PreviewStoppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceDisconnectedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SessionStateEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// SubscribeToChannel bridges callback-based subscriptions to channels, for
// SSE handlers that drain events in a select loop. Events are dropped when
// the channel is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
