package engine

import "sync/atomic"

// Clock hands out monotonic sequence numbers for submitted commands.
//
// Sequence numbers only label commands in logs and replies; ordering is
// enforced by the queue.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
