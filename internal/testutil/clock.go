package testutil

import (
	"sync"
	"time"
)

// Clock produces a deterministic, strictly increasing sequence of UTC
// timestamps for tests. Facts built with successive Next() calls always
// satisfy the store's ordering rule, and the same scenario produces the
// same timestamps on every run.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Clock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	ticks int
}

// NewClock creates a clock that starts at start and advances by step on
// each call to Next.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{start: start.UTC(), step: step}
}

// Next returns the current timestamp and advances the clock.
func (c *Clock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.start.Add(time.Duration(c.ticks) * c.step)
	c.ticks++
	return ts
}

// Current returns the timestamp the next call to Next will produce,
// without advancing.
func (c *Clock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start.Add(time.Duration(c.ticks) * c.step)
}

// Reset rewinds the clock to its start time.
//
// Used for test reuse. After Reset(), Next() returns the start time again.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
