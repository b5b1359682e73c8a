// Package runtime provides the collection execution environment.
// It registers collections, creates their storage, and runs the document
// operations (find, create, update, delete, login) with access checks,
// hooks, defaults, validation and change events.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/artpar/contentgate/adapters/clock"
	"github.com/artpar/contentgate/adapters/idgen"
	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/events"
	"github.com/artpar/contentgate/core/registry"
	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/core/storage"
	"github.com/artpar/contentgate/core/validation"
	"github.com/artpar/contentgate/ports"
	"github.com/rs/zerolog"
)

var (
	// ErrUnknownCollection is returned for slugs that are not registered.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrUnauthorized is returned when an anonymous caller is denied.
	ErrUnauthorized = errors.New("authentication required")

	// ErrForbidden is returned when an authenticated caller is denied.
	ErrForbidden = errors.New("you are not allowed to perform this action")

	// ErrInvalidCredentials is returned by Login for a bad email or password.
	ErrInvalidCredentials = errors.New("the email or password provided is incorrect")

	// ErrNotAuthCollection is returned by Login on collections without auth.
	ErrNotAuthCollection = errors.New("collection does not support login")
)

// ValidationError wraps validation failures.
type ValidationError struct {
	Collection string
	Result     schema.ValidationResult
}

// Error returns the validation error message.
func (e *ValidationError) Error() string {
	return "validation failed: " + e.Result.Error()
}

// Runtime is the execution environment for collections.
type Runtime struct {
	mu sync.RWMutex

	// registry manages collection registration
	registry *registry.Registry

	// storage provides persistence
	storage storage.Store

	// validator validates document data
	validator *validation.Validator

	// channels are the communication adapters
	channels map[string]Channel

	// hooks dispatcher for collection level hooks
	hooks *HookDispatcher

	// events bus for change notifications
	events *events.Bus

	clock  ports.Clock
	ids    ports.IDGenerator
	hasher ports.Hasher
	tokens ports.TokenIssuer

	logger zerolog.Logger
}

// Config configures the runtime. Nil ports get production defaults,
// except Hasher and Tokens which are required for auth collections.
type Config struct {
	Clock  ports.Clock
	IDs    ports.IDGenerator
	Hasher ports.Hasher
	Tokens ports.TokenIssuer

	// Logger for runtime, hooks and the event bus.
	Logger zerolog.Logger
}

// Channel is a communication adapter (HTTP, CLI, ...).
type Channel interface {
	// Name returns the channel name.
	Name() string

	// Register makes a collection reachable through the channel.
	Register(col convention.Derived) error

	// Start starts the channel.
	Start(ctx context.Context) error

	// Stop stops the channel.
	Stop(ctx context.Context) error
}

// New creates a new runtime.
func New(store storage.Store, config Config) *Runtime {
	if config.Clock == nil {
		config.Clock = clock.Real{}
	}
	if config.IDs == nil {
		config.IDs = idgen.UUID{}
	}

	return &Runtime{
		registry:  registry.New(),
		storage:   store,
		validator: validation.New(make(map[string]convention.Derived)),
		channels:  make(map[string]Channel),
		hooks:     &HookDispatcher{handlers: make(map[string][]HookHandler)},
		events:    events.NewBus(config.Logger),
		clock:     config.Clock,
		ids:       config.IDs,
		hasher:    config.Hasher,
		tokens:    config.Tokens,
		logger:    config.Logger,
	}
}

// RegisterChannel registers a communication channel. Collections loaded
// before the channel are registered with it immediately.
func (r *Runtime) RegisterChannel(ch Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, col := range r.registry.List() {
		if err := ch.Register(col); err != nil {
			return fmt.Errorf("register %q with channel %q: %w", col.Slug, ch.Name(), err)
		}
	}
	r.channels[ch.Name()] = ch
	return nil
}

// LoadCollection registers a collection and creates its table.
func (r *Runtime) LoadCollection(ctx context.Context, col schema.Collection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if col.Auth && r.hasher == nil {
		return fmt.Errorf("collection %q: auth collections need a password hasher", col.Slug)
	}

	if err := r.registry.Register(col); err != nil {
		return fmt.Errorf("register collection %q: %w", col.Slug, err)
	}

	derived, _ := r.registry.Get(col.Slug)

	if r.storage != nil {
		if err := r.storage.CreateTable(ctx, derived); err != nil {
			return fmt.Errorf("create table for %q: %w", col.Slug, err)
		}
	}

	for _, ch := range r.channels {
		if err := ch.Register(derived); err != nil {
			return fmt.Errorf("register %q with channel %q: %w", col.Slug, ch.Name(), err)
		}
	}

	r.validator.UpdateCollections(r.registry.All())

	r.logger.Debug().
		Str("collection", col.Slug).
		Str("table", derived.Table).
		Int("fields", len(derived.Fields)).
		Msg("collection loaded")

	return nil
}

// LoadCollectionsFromDir loads all YAML collection definitions in a directory.
func (r *Runtime) LoadCollectionsFromDir(ctx context.Context, dir string) error {
	cols, err := schema.ParseDir(dir)
	if err != nil {
		return fmt.Errorf("parse collections from %q: %w", dir, err)
	}

	for _, col := range cols {
		if err := r.LoadCollection(ctx, col); err != nil {
			return err
		}
	}

	return nil
}

// Seal verifies relations between loaded collections and freezes the
// registry. No collection can be loaded afterwards.
func (r *Runtime) Seal() error {
	if err := r.registry.VerifyRelations(); err != nil {
		return err
	}
	r.registry.Freeze()
	return nil
}

// Start starts all channels.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ch := range r.channels {
		if err := ch.Start(ctx); err != nil {
			return fmt.Errorf("start channel %q: %w", ch.Name(), err)
		}
	}
	return nil
}

// Stop stops all channels.
func (r *Runtime) Stop(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, ch := range r.channels {
		if err := ch.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop channel %q: %w", ch.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Registry returns the collection registry.
func (r *Runtime) Registry() *registry.Registry {
	return r.registry
}

// Events returns the event bus.
func (r *Runtime) Events() *events.Bus {
	return r.events
}

// Collection returns a registered collection.
func (r *Runtime) Collection(slug string) (convention.Derived, error) {
	col, ok := r.registry.Get(slug)
	if !ok {
		return convention.Derived{}, fmt.Errorf("%w: %s", ErrUnknownCollection, slug)
	}
	return col, nil
}

// OnHook registers a collection level hook. phase is "before" or "after".
func (r *Runtime) OnHook(collection string, op Operation, phase string, handler HookHandler) {
	r.hooks.OnHook(collection, op, phase, handler)
}

// HookHandler handles a hook event. A before hook may modify event.Data;
// returning an error aborts the operation.
type HookHandler func(ctx context.Context, event HookEvent) error

// HookEvent is passed to collection hooks.
type HookEvent struct {
	Collection string
	Operation  Operation
	Phase      string

	// Data is the incoming data (before) or the resulting document (after).
	Data map[string]any

	// User is the caller, nil when anonymous.
	User *schema.User
}

// HookDispatcher manages collection hooks.
type HookDispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]HookHandler
}

// Dispatch dispatches a hook event.
func (d *HookDispatcher) Dispatch(ctx context.Context, event HookEvent) error {
	key := hookKey(event.Collection, event.Operation, event.Phase)

	d.mu.RLock()
	handlers := d.handlers[key]
	d.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// OnHook registers a hook handler.
func (d *HookDispatcher) OnHook(collection string, op Operation, phase string, handler HookHandler) {
	key := hookKey(collection, op, phase)

	d.mu.Lock()
	d.handlers[key] = append(d.handlers[key], handler)
	d.mu.Unlock()
}

func hookKey(collection string, op Operation, phase string) string {
	return fmt.Sprintf("%s.%s.%s", collection, op, phase)
}
