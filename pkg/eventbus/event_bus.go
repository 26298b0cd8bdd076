// Package eventbus publishes deployment events to interested consumers.
package eventbus

import (
	"context"

	"github.com/dukex/flowsmith/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

// Discard is a bus that drops every event. Used when no bus is configured.
type Discard struct{}

func (Discard) Publish(context.Context, string, Event) error { return nil }
func (Discard) Handle(events.EventType, EventHandler) error  { return nil }
func (Discard) Subscribe(context.Context) error              { return nil }
func (Discard) Close() error                                 { return nil }
func (Discard) GenerateID() string                           { return "" }
