// Package idgen provides document and array row ID generators.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/artpar/contentgate/ports"
	"github.com/google/uuid"
)

// UUID generates time-ordered UUIDs (version 7).
type UUID struct{}

// New generates a new UUID. Falls back to a random v4 if the v7 source fails.
func (UUID) New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

var _ ports.IDGenerator = UUID{}

// Sequential generates predictable IDs for tests.
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

// Reset restarts the sequence at 1.
func (s *Sequential) Reset() {
	s.counter.Store(0)
}

var _ ports.IDGenerator = (*Sequential)(nil)
