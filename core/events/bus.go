// Package events provides a simple event bus for document change notifications.
// The runtime publishes "<collection>.<operation>" events after every write.
package events

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Event represents a published event.
type Event struct {
	// Name is the event name (e.g., "posts.create", "users.delete").
	Name string

	// Collection is the slug of the collection that changed.
	Collection string

	// Operation is create, update or delete.
	Operation string

	// ID is the affected document.
	ID string

	// Doc is the document after the write (nil for delete).
	Doc map[string]any

	// UserID is the caller, empty when anonymous.
	UserID string
}

// Name builds an event name from a collection slug and operation.
func Name(collection, operation string) string {
	return collection + "." + operation
}

// Handler is a function that processes an event.
type Handler func(ctx context.Context, event Event) error

// Bus is a simple publish/subscribe event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event.
// Supports wildcard subscriptions:
//   - "posts.create" - exact match
//   - "posts.*" - all posts events
//   - "*" - all events
func (b *Bus) Subscribe(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Publish emits an event to all matching handlers.
// Handlers are called synchronously; exact subscribers first, then
// collection wildcards, then global ones. Handler errors are logged.
func (b *Bus) Publish(ctx context.Context, event Event) {
	matched := b.match(event.Name)

	b.logger.Debug().
		Str("event", event.Name).
		Str("collection", event.Collection).
		Str("id", event.ID).
		Int("handlers", len(matched)).
		Msg("event emitted")

	for _, handler := range matched {
		if err := handler(ctx, event); err != nil {
			b.logger.Error().
				Err(err).
				Str("event", event.Name).
				Msg("event handler error")
		}
	}
}

// PublishAsync emits an event asynchronously.
// The function returns immediately; handlers run in a goroutine.
func (b *Bus) PublishAsync(ctx context.Context, event Event) {
	go b.Publish(context.WithoutCancel(ctx), event)
}

// HasSubscribers checks if any handlers are registered for an event.
func (b *Bus) HasSubscribers(event string) bool {
	return len(b.match(event)) > 0
}

// match collects the handlers for an event name. Handlers run outside the
// lock so they may subscribe or publish themselves.
func (b *Bus) match(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []Handler
	matched = append(matched, b.handlers[name]...)

	if collection, _, ok := strings.Cut(name, "."); ok && collection != "" {
		matched = append(matched, b.handlers[collection+".*"]...)
	}

	matched = append(matched, b.handlers["*"]...)
	return matched
}
