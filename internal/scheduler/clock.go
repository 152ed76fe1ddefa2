package scheduler

import "sync/atomic"

// SeqClock hands out increasing sequence numbers for journal lines.
// Implemented by Clock (production) and testutil.DeterministicClock (tests).
type SeqClock interface {
	Next() int64
}

// Clock is a monotonic logical clock for ordering settled outcomes.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// The dispatch loop is its only caller during a run.
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

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
