package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/contractgen/backend/internal/domain/events"
	"github.com/contractgen/backend/internal/domain/ports"
)

// EventType is an alias to the domain type
type EventType = events.EventType

// EventHandler is a function that handles an event.
// Using the type from ports to ensure interface compatibility.
type EventHandler = ports.EventHandler

// PlatformEvent is what the bus records for the most recent publish of each type
type PlatformEvent struct {
	Type      EventType `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp int64     `json:"timestamp"`
}

type subscription struct {
	id      uint64
	handler EventHandler
}

// EventBus manages publish-subscribe between the session and its listeners.
// It implements ports.EventPublisher.
type EventBus struct {
	handlers map[EventType][]subscription
	nextID   uint64
	logger   *zap.Logger
	mu       sync.RWMutex
}

// Ensure EventBus implements ports.EventPublisher at compile time
var _ ports.EventPublisher = (*EventBus)(nil)

// NewEventBus creates a new EventBus instance
func NewEventBus(logger *zap.Logger) *EventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBus{
		handlers: make(map[EventType][]subscription),
		logger:   logger,
	}
}

// Subscribe registers a handler for a specific event type
// Returns an unsubscribe function
func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.nextID++
	id := eb.nextID
	eb.handlers[eventType] = append(eb.handlers[eventType], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() {
			eb.mu.Lock()
			defer eb.mu.Unlock()

			subs := eb.handlers[eventType]
			for i, s := range subs {
				if s.id == id {
					eb.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish runs every handler registered for eventType, in subscription order.
// Handler errors and panics are isolated: the remaining handlers still run and
// the failures come back joined.
func (eb *EventBus) Publish(ctx context.Context, eventType EventType, payload any) error {
	eb.mu.RLock()
	subs := append([]subscription(nil), eb.handlers[eventType]...)
	eb.mu.RUnlock()

	if len(subs) == 0 {
		return nil
	}

	event := PlatformEvent{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	}

	var errs []error
	for _, s := range subs {
		if err := eb.invoke(ctx, s.handler, event); err != nil {
			eb.logger.Warn("event handler failed",
				zap.String("event", eventType.String()),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (eb *EventBus) invoke(ctx context.Context, handler EventHandler, event PlatformEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler for %s panicked: %v", event.Type, r)
		}
	}()
	if err := handler(ctx, event.Payload); err != nil {
		return fmt.Errorf("handler for %s: %w", event.Type, err)
	}
	return nil
}

// HandlerCount returns the number of handlers registered for eventType
func (eb *EventBus) HandlerCount(eventType EventType) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.handlers[eventType])
}

// Clear removes all handlers (useful for testing)
func (eb *EventBus) Clear() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers = make(map[EventType][]subscription)
}
