// Package testutil provides deterministic stand-ins for ambient inputs,
// so tests and conformance scenarios produce byte-identical event logs.
package testutil

import (
	"sync"
	"time"
)

// Ticker is a deterministic time source. Each call to Now returns the
// previous value advanced by a fixed step, so event timestamps are
// reproducible across runs.
//
// Safe for concurrent use.
type Ticker struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewTicker creates a ticker starting at start, advancing by step per
// call. A zero step yields a frozen clock.
func NewTicker(start time.Time, step time.Duration) *Ticker {
	return &Ticker{next: start, step: step}
}

// Epoch is the conventional starting instant for deterministic tests.
func Epoch() time.Time {
	return time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
}

// Now returns the next instant.
func (c *Ticker) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	return now
}

// Reset rewinds the ticker to start.
func (c *Ticker) Reset(start time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = start
}
