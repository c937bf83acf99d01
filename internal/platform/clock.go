package platform

import (
	"time"

	"github.com/roach88/esm/internal/esm"
)

// MonotonicClock reports milliseconds elapsed since it was created.
//
// Readings are truncated to esm.Tick and wrap after about 24.8 days,
// which the Machine tolerates.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock creates a clock reading zero now.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// Now returns the elapsed milliseconds.
func (c *MonotonicClock) Now() esm.Tick {
	return esm.Tick(time.Since(c.start).Milliseconds())
}
