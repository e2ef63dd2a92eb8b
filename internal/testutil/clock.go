package testutil

import (
	"sync"

	"github.com/roach88/storyboard/internal/timeline"
)

// TickClock hands out evenly spaced simulation ticks, the way a kernel with a
// fixed step would.
//
// The first call to Next returns the start tick. TickClock can be reset so
// the same scenario can be stepped twice with identical ticks.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type TickClock struct {
	mu    sync.Mutex
	start timeline.Tick
	step  timeline.Tick
	next  timeline.Tick
}

// NewTickClock creates a clock that yields start, start+step, start+2*step...
// A non-positive step is treated as one tick.
func NewTickClock(start, step timeline.Tick) *TickClock {
	if step <= 0 {
		step = 1
	}
	return &TickClock{start: start, step: step, next: start}
}

// Next returns the next tick.
func (c *TickClock) Next() timeline.Tick {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next += c.step
	return t
}

// Peek returns the tick the next call to Next will return.
func (c *TickClock) Peek() timeline.Tick {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// Reset rewinds the clock to its start tick.
func (c *TickClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = c.start
}
