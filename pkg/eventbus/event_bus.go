// Package eventbus provides the messaging abstraction the engine publishes
// transition events through.
package eventbus

import (
	"context"

	"github.com/pipecraft/campd/pkg/events"
)

// Event is anything the engine can put on the bus. Concrete event types live
// in pkg/events.
type Event interface {
	GetType() events.EventType
}

// EventHandler consumes one decoded event.
type EventHandler func(ctx context.Context, event any) error

// EventPublisher publishes events keyed by entity id so consumers can rely on
// per-entity ordering where the transport supports it.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber registers handlers per event type, then consumes until the
// context is cancelled.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventBus combines both halves over a shared transport.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
