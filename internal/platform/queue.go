package platform

import (
	"sync"

	"github.com/roach88/esm/internal/esm"
)

// EventQueue is a bounded FIFO of event ids.
//
// It is a ring of size+1 slots with one slot always left empty, so a full
// ring is distinguishable from an empty one without a counter.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type EventQueue struct {
	mu  sync.Mutex
	buf []esm.EventID
	rp  int
	wp  int
}

// NewEventQueue creates a queue holding up to size events.
func NewEventQueue(size int) *EventQueue {
	if size < 0 {
		size = 0
	}
	return &EventQueue{buf: make([]esm.EventID, size+1)}
}

func (q *EventQueue) nextIndex(i int) int {
	return (i + 1) % len(q.buf)
}

// Push appends id. It returns false if the queue is full.
func (q *EventQueue) Push(id esm.EventID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	next := q.nextIndex(q.wp)
	if next == q.rp {
		return false
	}
	q.buf[q.wp] = id
	q.wp = next
	return true
}

// Pop removes the oldest event. It never blocks.
func (q *EventQueue) Pop() (esm.EventID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.rp == q.wp {
		return 0, false
	}
	id := q.buf[q.rp]
	q.rp = q.nextIndex(q.rp)
	return id, true
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return (q.wp - q.rp + len(q.buf)) % len(q.buf)
}

// Cap returns the maximum number of queued events.
func (q *EventQueue) Cap() int {
	return len(q.buf) - 1
}

// Reset discards all queued events.
func (q *EventQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rp, q.wp = 0, 0
}
