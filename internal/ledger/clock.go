package ledger

import "sync/atomic"

// Clock is the monotonic logical clock that orders a room's events.
//
// Every appended event is stamped with a strictly increasing seq number from
// its room's clock. This ensures:
// - Deterministic ordering (no wall-clock race conditions)
// - Replay produces identical order
// - Sequence gaps are harmless; only strict increase matters
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// In practice the room coordinator's serialized submit path means only one
// goroutine calls Next() per room at a time.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resumed at a specific sequence number.
// Used on recovery to continue from the highest persisted seq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
// Each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
