package demo

import (
	"fmt"

	"github.com/roach88/esm/internal/esm"
)

// Callback names reported to a Sink.
const (
	CallbackOnInit    = "event_handler->on_init"
	CallbackOnEvent   = "event_handler->on_event"
	CallbackOnTimer   = "event_handler->on_timer"
	CallbackOnDestroy = "event_handler->on_destroy"
	CallbackRelease   = "event_handler->release"

	CallbackTimerInvoke  = "timer_handler->invoke"
	CallbackTimerRelease = "timer_handler->release"

	CallbackMessageInvoke  = "message->invoke"
	CallbackMessageRelease = "message->release"
)

// Sources that are not state names.
const (
	SourceGlobal = "global"
	SourceOuter  = "outer"
)

// Sink receives one record per callback.
type Sink interface {
	Record(source, callback, arg string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(source, callback, arg string)

func (f SinkFunc) Record(source, callback, arg string) { f(source, callback, arg) }

// Controller is the subset of *esm.Machine the states drive.
type Controller interface {
	SetNextHandler(h esm.EventHandler) error
	SetTimer(id esm.TimerID, timeout esm.Tick, repeat bool) error
	KillTimer(id esm.TimerID) error
	SetGlobalTimer(id esm.TimerID, timeout esm.Tick, repeat bool, h esm.Handler) error
	KillGlobalTimer(id esm.TimerID) error
	PostMessage(msg esm.Handler) error
}

// Poster is the subset of *esm.Machine safe to call from any goroutine.
type Poster interface {
	PostMessage(msg esm.Handler) error
}

// Option configures Handlers.
type Option func(*Handlers)

// WithErrorHandler receives errors from Machine calls made by the states.
// By default they are dropped.
func WithErrorHandler(fn func(Kind, error)) Option {
	return func(h *Handlers) {
		if fn != nil {
			h.onError = fn
		}
	}
}

// Handlers is the ring of sample states bound to one Machine.
type Handlers struct {
	ctrl    Controller
	sink    Sink
	onError func(Kind, error)
	states  []*State
}

// StateNames lists the states in ring order.
var StateNames = []string{"state_1", "state_2", "state_3"}

// NewHandlers builds the state ring.
func NewHandlers(ctrl Controller, sink Sink, opts ...Option) *Handlers {
	h := &Handlers{
		ctrl:    ctrl,
		sink:    sink,
		onError: func(Kind, error) {},
	}
	for _, opt := range opts {
		opt(h)
	}
	for i, name := range StateNames {
		h.states = append(h.states, &State{name: name, next: (i + 1) % len(StateNames), set: h})
	}
	return h
}

// Initial returns state_1, the handler to pass to Prepare.
func (h *Handlers) Initial() *State {
	return h.states[0]
}

// State returns the state named name.
func (h *Handlers) State(name string) (*State, bool) {
	for _, s := range h.states {
		if s.name == name {
			return s, true
		}
	}
	return nil, false
}

// State is one sample event handler.
type State struct {
	name string
	next int
	set  *Handlers
}

var _ esm.EventHandler = (*State)(nil)

// Name returns the state's name.
func (s *State) Name() string { return s.name }

// Next returns the state this one hands over to.
func (s *State) Next() *State { return s.set.states[s.next] }

func (s *State) OnInit() {
	s.set.sink.Record(s.name, CallbackOnInit, "")
}

// OnEvent decodes id and performs the command.
func (s *State) OnEvent(id esm.EventID) {
	s.set.sink.Record(s.name, CallbackOnEvent, fmt.Sprintf("0x%08X", uint32(id)))

	c := Decode(id)
	ctrl := s.set.ctrl
	var err error
	switch c.Kind {
	case KindNextHandler:
		err = ctrl.SetNextHandler(s.Next())
	case KindSetTimer:
		err = ctrl.SetTimer(c.TimerID, c.Timeout, c.Repeat)
	case KindKillTimer:
		err = ctrl.KillTimer(c.TimerID)
	case KindSetGTimer:
		err = ctrl.SetGlobalTimer(c.TimerID, c.Timeout, c.Repeat, GlobalTimerHandler(s.set.sink))
	case KindKillGTimer:
		err = ctrl.KillGlobalTimer(c.TimerID)
	case KindPostMessage:
		err = ctrl.PostMessage(Message(s.name, s.set.sink))
	default:
		return
	}
	if err != nil {
		s.set.onError(c.Kind, err)
	}
}

func (s *State) OnTimer(id esm.TimerID) {
	s.set.sink.Record(s.name, CallbackOnTimer, fmt.Sprintf("%d", id))
}

func (s *State) OnDestroy() {
	s.set.sink.Record(s.name, CallbackOnDestroy, "")
}

func (s *State) Release() {
	s.set.sink.Record(s.name, CallbackRelease, "")
}

// GlobalTimerHandler returns the handler armed by set-gtimer.
func GlobalTimerHandler(sink Sink) esm.Handler {
	return esm.HandlerFuncs{
		InvokeFunc:  func() { sink.Record(SourceGlobal, CallbackTimerInvoke, "") },
		ReleaseFunc: func() { sink.Record(SourceGlobal, CallbackTimerRelease, "") },
	}
}

// Message returns a message that reports itself under source.
func Message(source string, sink Sink) esm.Handler {
	return esm.HandlerFuncs{
		InvokeFunc:  func() { sink.Record(source, CallbackMessageInvoke, "") },
		ReleaseFunc: func() { sink.Record(source, CallbackMessageRelease, "") },
	}
}

// PostOuterMessage posts a message with source "outer". It may be called
// from any goroutine.
func PostOuterMessage(p Poster, sink Sink) error {
	return p.PostMessage(Message(SourceOuter, sink))
}
