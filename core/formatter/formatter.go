// Package formatter renders documents for terminal output.
package formatter

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/artpar/contentgate/core/convention"
)

// Formatter renders documents of a collection.
type Formatter interface {
	// Name returns the formatter name (e.g., "table", "json", "yaml").
	Name() string

	// FormatList formats a page of documents.
	FormatList(w io.Writer, col convention.Derived, docs []map[string]any, opts Options) error

	// FormatRecord formats a single document.
	FormatRecord(w io.Writer, col convention.Derived, doc map[string]any, opts Options) error
}

// Options configures formatting behavior.
type Options struct {
	// Columns specifies which fields to include. Empty means the
	// collection's default columns for lists and every field for records.
	Columns []string

	// NoHeader disables the header row of tables.
	NoHeader bool

	// MaxWidth truncates long table cells (0 = no limit).
	MaxWidth int
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates a registry holding the table, json and yaml formatters.
// Table is the default.
func NewRegistry() *Registry {
	r := &Registry{formatters: make(map[string]Formatter)}
	r.Register(Table{})
	r.Register(JSON{})
	r.Register(YAML{})
	r.defaultFmt = "table"
	return r
}

// Register adds a formatter, replacing one with the same name.
func (r *Registry) Register(f Formatter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatters[f.Name()] = f
}

// Get returns the formatter with the given name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultFmt
	}
	f, ok := r.formatters[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q", name)
	}
	return f, nil
}

// List returns the registered formatter names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// pick keeps only the requested keys of a document.
func pick(doc map[string]any, columns []string) map[string]any {
	if len(columns) == 0 {
		return doc
	}
	out := make(map[string]any, len(columns))
	for _, c := range columns {
		if v, ok := doc[c]; ok {
			out[c] = v
		}
	}
	return out
}
