package ports

import (
	"context"

	"github.com/contractgen/backend/internal/domain/events"
)

// EventHandler is a function that handles an event
type EventHandler func(ctx context.Context, payload any) error

// EventPublisher provides event publishing capabilities.
type EventPublisher interface {
	// Subscribe registers a handler for a specific event type.
	// The returned func removes the handler.
	Subscribe(eventType events.EventType, handler EventHandler) func()

	// Publish runs every handler for the event. A failing or panicking handler
	// does not stop the others; all failures are joined into the returned error.
	Publish(ctx context.Context, eventType events.EventType, payload any) error
}
