// Package registry manages collection registration and conflict detection.
// Collections are registered at startup, verified, then frozen; after that
// the registry is read-only.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/schema"
)

// ErrFrozen is returned when registering into a frozen registry.
var ErrFrozen = errors.New("registry is frozen")

// Registry manages registered collections.
type Registry struct {
	mu     sync.RWMutex
	frozen bool

	// collections by slug
	collections map[string]convention.Derived

	// registration order
	order []string

	// tables to slugs
	tables map[string]string
}

// New creates a new registry.
func New() *Registry {
	return &Registry{
		collections: make(map[string]convention.Derived),
		tables:      make(map[string]string),
	}
}

// Register validates, derives and registers a collection.
// Returns an error if the definition is invalid or conflicts with a registered one.
func (r *Registry) Register(col schema.Collection) error {
	if err := schema.Validate(col); err != nil {
		return fmt.Errorf("collection %q: %w", col.Slug, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrFrozen
	}

	derived := convention.Derive(col)

	var conflicts []Conflict
	if _, exists := r.collections[col.Slug]; exists {
		conflicts = append(conflicts, Conflict{Kind: "slug", Key: col.Slug, Existing: col.Slug, Incoming: col.Slug})
	}
	if existing, exists := r.tables[derived.Table]; exists {
		conflicts = append(conflicts, Conflict{Kind: "table", Key: derived.Table, Existing: existing, Incoming: col.Slug})
	}
	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}

	r.collections[col.Slug] = derived
	r.tables[derived.Table] = col.Slug
	r.order = append(r.order, col.Slug)

	return nil
}

// Unregister removes a collection from the registry.
func (r *Registry) Unregister(slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrFrozen
	}

	derived, exists := r.collections[slug]
	if !exists {
		return fmt.Errorf("collection %q not registered", slug)
	}

	delete(r.tables, derived.Table)
	delete(r.collections, slug)
	for i, s := range r.order {
		if s == slug {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	return nil
}

// VerifyRelations checks that every relationship and upload field points at
// a registered collection, and that upload fields point at upload collections.
func (r *Registry) VerifyRelations() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []string
	for _, slug := range r.order {
		for _, f := range r.collections[slug].References() {
			target, ok := r.collections[f.Ref]
			if !ok {
				errs = append(errs, fmt.Sprintf("%s.%s: relationTo %q is not registered", slug, f.Name, f.Ref))
				continue
			}
			if f.Type == schema.FieldTypeUpload && !target.Source.Upload {
				errs = append(errs, fmt.Sprintf("%s.%s: relationTo %q is not an upload collection", slug, f.Name, f.Ref))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("relation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Get returns a registered collection by slug.
func (r *Registry) Get(slug string) (convention.Derived, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	col, ok := r.collections[slug]
	return col, ok
}

// List returns all registered collections in registration order.
// Referenced collections come first when registered first, which is the
// order tables are created in.
func (r *Registry) List() []convention.Derived {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cols := make([]convention.Derived, 0, len(r.order))
	for _, slug := range r.order {
		cols = append(cols, r.collections[slug])
	}
	return cols
}

// Slugs returns all registered slugs sorted alphabetically.
func (r *Registry) Slugs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slugs := append([]string(nil), r.order...)
	sort.Strings(slugs)
	return slugs
}

// All returns all registered collections as a map keyed by slug.
func (r *Registry) All() map[string]convention.Derived {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]convention.Derived, len(r.collections))
	for slug, col := range r.collections {
		result[slug] = col
	}
	return result
}

// Conflict describes one registration clash.
type Conflict struct {
	Kind     string // slug or table
	Key      string
	Existing string
	Incoming string
}

func (c Conflict) Error() string {
	if c.Kind == "slug" {
		return fmt.Sprintf("collection %q already registered", c.Key)
	}
	return fmt.Sprintf("%s %q already claimed by collection %q (incoming %q)", c.Kind, c.Key, c.Existing, c.Incoming)
}

// ConflictError represents one or more registration conflicts.
type ConflictError struct {
	Conflicts []Conflict
}

// Error returns the conflict error message.
func (e *ConflictError) Error() string {
	var msgs []string
	for _, c := range e.Conflicts {
		msgs = append(msgs, c.Error())
	}
	return fmt.Sprintf("conflicts detected:\n  - %s", strings.Join(msgs, "\n  - "))
}

// HasConflicts returns true if there are any conflicts.
func (e *ConflictError) HasConflicts() bool {
	return len(e.Conflicts) > 0
}
