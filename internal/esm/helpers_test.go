package esm_test

import (
	"fmt"
	"sync"

	"github.com/roach88/esm/internal/esm"
	"github.com/roach88/esm/internal/testutil"
)

// fakePlatform is a scriptable esm.Platform backed by a manual clock.
type fakePlatform struct {
	sync.Mutex
	*testutil.ManualClock

	events   []esm.EventID
	free     []esm.CellID
	capacity int
	issued   int

	initErr    error
	prepareErr error
	cleanupErr error
	badCell    bool

	hooks []string
}

func newFakePlatform(capacity int) *fakePlatform {
	return &fakePlatform{
		ManualClock: testutil.NewManualClock(0),
		capacity:    capacity,
	}
}

func (p *fakePlatform) PeekEvent() (esm.EventID, bool) {
	if len(p.events) == 0 {
		return 0, false
	}
	id := p.events[0]
	p.events = p.events[1:]
	return id, true
}

func (p *fakePlatform) post(ids ...esm.EventID) {
	p.events = append(p.events, ids...)
}

func (p *fakePlatform) AllocMessageCell() (esm.CellID, bool) {
	if p.badCell {
		return esm.CellID(p.capacity), true
	}
	if n := len(p.free); n > 0 {
		id := p.free[n-1]
		p.free = p.free[:n-1]
		p.issued++
		return id, true
	}
	return 0, false
}

func (p *fakePlatform) DeallocMessageCell(id esm.CellID) {
	p.free = append(p.free, id)
	p.issued--
}

func (p *fakePlatform) MessageCapacity() int { return p.capacity }

func (p *fakePlatform) Initialize() error {
	p.hooks = append(p.hooks, "initialize")
	return p.initErr
}

func (p *fakePlatform) Finalize() {
	p.hooks = append(p.hooks, "finalize")
}

func (p *fakePlatform) Prepare() error {
	p.hooks = append(p.hooks, "prepare")
	if p.prepareErr != nil {
		return p.prepareErr
	}
	p.free = p.free[:0]
	for i := p.capacity - 1; i >= 0; i-- {
		p.free = append(p.free, esm.CellID(i))
	}
	p.issued = 0
	return nil
}

func (p *fakePlatform) Cleanup() error {
	p.hooks = append(p.hooks, "cleanup")
	return p.cleanupErr
}

// callLog records callbacks in order. Safe for concurrent use.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

func (l *callLog) count(call string) int {
	n := 0
	for _, c := range l.all() {
		if c == call {
			n++
		}
	}
	return n
}

// tracedHandler returns an event handler that logs every callback as
// "<name>.<callback>" (with the id for on_event and on_timer).
func tracedHandler(name string, log *callLog) *esm.EventHandlerFuncs {
	return &esm.EventHandlerFuncs{
		OnInitFunc:    func() { log.add("%s.on_init", name) },
		OnEventFunc:   func(id esm.EventID) { log.add("%s.on_event(%d)", name, id) },
		OnTimerFunc:   func(id esm.TimerID) { log.add("%s.on_timer(%d)", name, id) },
		OnDestroyFunc: func() { log.add("%s.on_destroy", name) },
		ReleaseFunc:   func() { log.add("%s.release", name) },
	}
}

// tracedMessage returns a handler that logs "<name>.invoke" and
// "<name>.release".
func tracedMessage(name string, log *callLog) esm.HandlerFuncs {
	return esm.HandlerFuncs{
		InvokeFunc:  func() { log.add("%s.invoke", name) },
		ReleaseFunc: func() { log.add("%s.release", name) },
	}
}

// preparedMachine returns a Machine that is initialized and prepared with
// a traced handler named "h1". The log is reset after on_init.
func preparedMachine(p *fakePlatform, log *callLog, opts ...esm.Option) *esm.Machine {
	m := esm.New(p, opts...)
	if err := m.Initialize(); err != nil {
		panic(err)
	}
	if err := m.Prepare(tracedHandler("h1", log)); err != nil {
		panic(err)
	}
	log.reset()
	return m
}
