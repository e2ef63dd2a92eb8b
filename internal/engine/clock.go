package engine

import "sync/atomic"

// Clock is the firing sequence counter of a board.
//
// Every firing is stamped with a strictly increasing seq from this clock, so
// the firing log has a total order independent of simulated time (several
// stories can fire on the same tick). Replaying a run yields the same seqs.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
