package esm_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/esm/internal/esm"
)

func TestPostMessage_FIFOOrder(t *testing.T) {
	p := newFakePlatform(8)
	log := &callLog{}
	m := preparedMachine(p, log)

	for _, name := range []string{"A", "B", "C"} {
		require.NoError(t, m.PostMessage(tracedMessage(name, log)))
	}
	assert.Equal(t, 3, m.PendingMessages())

	require.NoError(t, m.ResumeAndYield())
	assert.Equal(t, []string{
		"A.invoke", "A.release",
		"B.invoke", "B.release",
		"C.invoke", "C.release",
	}, log.all())
	assert.Equal(t, 0, m.PendingMessages())
	assert.Equal(t, 0, p.issued, "every cell returns to the arena")
}

func TestPostMessage_PostedDuringDrainRunsNextPass(t *testing.T) {
	p := newFakePlatform(8)
	log := &callLog{}
	m := preparedMachine(p, log)

	require.NoError(t, m.PostMessage(esm.HandlerFuncs{
		InvokeFunc: func() {
			log.add("A.invoke")
			require.NoError(t, m.PostMessage(tracedMessage("D", log)))
		},
		ReleaseFunc: func() { log.add("A.release") },
	}))
	require.NoError(t, m.PostMessage(tracedMessage("B", log)))

	require.NoError(t, m.ResumeAndYield())
	assert.Equal(t, []string{"A.invoke", "A.release", "B.invoke", "B.release"}, log.all())
	assert.Equal(t, 1, m.PendingMessages())

	require.NoError(t, m.ResumeAndYield())
	assert.Equal(t, []string{"D.invoke", "D.release"}, log.all()[4:])
}

func TestPostMessage_ArenaExhaustion(t *testing.T) {
	p := newFakePlatform(3)
	log := &callLog{}
	m := preparedMachine(p, log)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.PostMessage(tracedMessage(fmt.Sprintf("m%d", i), log)))
	}

	overflow := tracedMessage("overflow", log)
	err := m.PostMessage(overflow)
	require.Error(t, err)
	assert.True(t, esm.IsResourceExhaustedError(err))
	assert.Equal(t, 3, m.PendingMessages())

	require.NoError(t, m.ResumeAndYield())
	assert.Equal(t, []string{
		"m0.invoke", "m0.release",
		"m1.invoke", "m1.release",
		"m2.invoke", "m2.release",
	}, log.all(), "rejected message is never invoked or released")

	// The arena is usable again after draining.
	require.NoError(t, m.PostMessage(overflow))
	require.NoError(t, m.ResumeAndYield())
	assert.Equal(t, 1, log.count("overflow.invoke"))
}

func TestPostMessage_BadArenaCell(t *testing.T) {
	p := newFakePlatform(2)
	log := &callLog{}
	m := preparedMachine(p, log)

	p.badCell = true
	err := m.PostMessage(tracedMessage("m", log))
	assert.True(t, esm.IsPlatformError(err))
	assert.Equal(t, 0, m.PendingMessages())
}

func TestPostMessage_ConcurrentPosters(t *testing.T) {
	const posters = 8
	const perPoster = 25

	p := newFakePlatform(posters * perPoster)
	m := preparedMachine(p, &callLog{})

	var mu sync.Mutex
	seen := make(map[int][]int)

	var wg sync.WaitGroup
	for g := 0; g < posters; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perPoster; i++ {
				i := i
				err := m.PostMessage(esm.Func(func() {
					mu.Lock()
					seen[g] = append(seen[g], i)
					mu.Unlock()
				}))
				assert.NoError(t, err)
			}
		}(g)
	}
	wg.Wait()

	require.NoError(t, m.ResumeAndYield())

	// Per-poster order is preserved.
	for g := 0; g < posters; g++ {
		require.Len(t, seen[g], perPoster)
		for i, v := range seen[g] {
			assert.Equal(t, i, v)
		}
	}
}

func TestPostMessage_ConcurrentWithDriver(t *testing.T) {
	p := newFakePlatform(16)
	m := preparedMachine(p, &callLog{})

	var mu sync.Mutex
	delivered := 0
	const total = 200

	done := make(chan struct{})
	go func() {
		defer close(done)
		for posted := 0; posted < total; {
			err := m.PostMessage(esm.Func(func() {
				mu.Lock()
				delivered++
				mu.Unlock()
			}))
			if err == nil {
				posted++
				continue
			}
			// The arena is small; retry until the driver drains it.
			assert.True(t, esm.IsResourceExhaustedError(err))
		}
	}()

	for {
		require.NoError(t, m.ResumeAndYield())
		select {
		case <-done:
			require.NoError(t, m.ResumeAndYield())
			mu.Lock()
			assert.Equal(t, total, delivered)
			mu.Unlock()
			return
		default:
		}
	}
}

func TestCleanup_DrainsThenReleasesStragglers(t *testing.T) {
	p := newFakePlatform(4)
	log := &callLog{}
	m := preparedMachine(p, log)

	require.NoError(t, m.PostMessage(esm.HandlerFuncs{
		InvokeFunc: func() {
			log.add("A.invoke")
			require.NoError(t, m.PostMessage(tracedMessage("late", log)))
		},
		ReleaseFunc: func() { log.add("A.release") },
	}))

	require.NoError(t, m.Cleanup())

	// Messages posted during the final drain are released without running.
	assert.Equal(t, []string{
		"A.invoke", "A.release",
		"late.release",
		"h1.on_destroy", "h1.release",
	}, log.all())
	assert.Equal(t, 0, p.issued)
}
