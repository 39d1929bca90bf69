// Package testutil provides test doubles shared across packages.
package testutil

import (
	"sync"
	"time"
)

// Clock is a manually-advanced wall clock for tests.
//
// It is injected through the store's Config.Now hook so tests exercising
// time-based behavior (TTL squashing) never sleep. Advancing is explicit;
// Now never moves on its own.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock frozen at the given instant.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
