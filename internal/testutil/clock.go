package testutil

import (
	"sync"

	"github.com/roach88/esm/internal/esm"
)

// ManualClock is a tick source that only moves when told to.
//
// It satisfies esm.Clock, so it can be handed to platform.WithClock and
// scenarios can step time deterministically, reproducing the same trace on
// every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now esm.Tick
}

// NewManualClock creates a clock reading start.
func NewManualClock(start esm.Tick) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current tick.
func (c *ManualClock) Now() esm.Tick {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d ticks and returns the new reading.
// The tick counter wraps like the hardware counters it stands in for.
func (c *ManualClock) Advance(d esm.Tick) esm.Tick {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	return c.now
}

// Set moves the clock to t.
func (c *ManualClock) Set(t esm.Tick) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
