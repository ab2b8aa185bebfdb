package vm

import "sync/atomic"

// Clock is a monotonic logical clock. Execution records are stamped with
// a strictly increasing seq from one shared clock, so the interleaving of
// the two engines is reconstructible from a trace without wall-clock
// comparisons.
//
// Safe for concurrent use, though the driver's single control flow means
// calls are normally sequential.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming from a known sequence number.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the latest issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
