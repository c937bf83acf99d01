package trace

import "sync"

// Observer receives events as they are recorded.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock sets the sequence clock, e.g. to continue a stored session.
func WithClock(c *Clock) RecorderOption {
	return func(r *Recorder) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithObserver adds an observer.
func WithObserver(o Observer) RecorderOption {
	return func(r *Recorder) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// Recorder collects events in record order.
//
// Thread-safety: Record may be called from any goroutine. Observers are
// called with the Recorder's lock held, so they see events in seq order
// and must not call back into the Recorder.
type Recorder struct {
	mu        sync.Mutex
	clock     *Clock
	events    []Event
	observers []Observer
}

// NewRecorder creates an empty Recorder.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{clock: NewClock()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record implements demo.Sink.
func (r *Recorder) Record(source, callback, arg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev := Event{
		Seq:      r.clock.Next(),
		Source:   source,
		Callback: callback,
		Arg:      arg,
	}
	r.events = append(r.events, ev)
	for _, o := range r.observers {
		o.Observe(ev)
	}
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Reset discards recorded events. Sequence numbers keep increasing.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
