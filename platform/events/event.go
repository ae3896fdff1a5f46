// Package events provides the in-process event bus the modules use to
// react to each other's state changes without direct dependencies.
// Domain event types live with their owning module; only the bus
// machinery is here.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event.
type Event interface {
	// EventName uniquely identifies the event type and is the key
	// handlers subscribe under.
	EventName() string
	// OccurredAt reports when the event was produced.
	OccurredAt() time.Time
}

// BaseEvent carries the fields shared by all events. Embed it and add
// the event's own payload fields alongside.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a BaseEvent with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events. A handler subscribed under an event name
// receives every event published under that name.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus is the publish/subscribe surface modules depend on.
type Bus interface {
	// Publish fans the event out to its subscribers asynchronously;
	// the publisher never waits on handlers.
	Publish(ctx context.Context, event Event)

	// PublishSync runs every subscriber inline and returns their
	// combined error.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under the name the event's
	// EventName returns.
	Subscribe(eventName string, handler Handler)
}
