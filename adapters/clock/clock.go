// Package clock provides Clock implementations.
package clock

import (
	"sync"
	"time"

	"github.com/artpar/contentgate/ports"
)

// Precision is the resolution of stored dates. Clocks truncate to it so a
// value read back from storage equals the value that was written.
const Precision = time.Millisecond

// Real returns the actual current time in UTC.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time {
	return time.Now().UTC().Truncate(Precision)
}

var _ ports.Clock = Real{}

// Fake provides a controllable clock for testing.
type Fake struct {
	mu      sync.RWMutex
	current time.Time
	calls   int
}

// NewFake creates a fake clock set to the given time.
func NewFake(t time.Time) *Fake {
	return &Fake{current: t.UTC().Truncate(Precision)}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.current
}

// Calls returns how many times Now has been called.
func (f *Fake) Calls() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls
}

// Set sets the fake current time.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = t.UTC().Truncate(Precision)
}

// Advance moves the fake time forward by duration d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.Add(d).Truncate(Precision)
}

var _ ports.Clock = (*Fake)(nil)
