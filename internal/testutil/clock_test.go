package testutil

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/esm/internal/esm"
)

var _ esm.Clock = (*ManualClock)(nil)

func TestManualClock_StartsAtGivenTick(t *testing.T) {
	c := NewManualClock(42)
	assert.Equal(t, esm.Tick(42), c.Now())
	assert.Equal(t, esm.Tick(42), c.Now(), "reading must not advance the clock")
}

func TestManualClock_Advance(t *testing.T) {
	c := NewManualClock(0)

	assert.Equal(t, esm.Tick(10), c.Advance(10))
	assert.Equal(t, esm.Tick(15), c.Advance(5))
	assert.Equal(t, esm.Tick(15), c.Now())
}

func TestManualClock_AdvanceWraps(t *testing.T) {
	c := NewManualClock(math.MaxInt32)

	got := c.Advance(1)
	assert.Equal(t, esm.Tick(math.MinInt32), got)
}

func TestManualClock_Set(t *testing.T) {
	c := NewManualClock(100)
	c.Set(-5)
	assert.Equal(t, esm.Tick(-5), c.Now())
}

func TestManualClock_ThreadSafe(t *testing.T) {
	c := NewManualClock(0)
	const goroutines = 50
	const steps = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < steps; j++ {
				c.Advance(1)
				_ = c.Now()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, esm.Tick(goroutines*steps), c.Now())
}
