package esm

import "reflect"

// Tick is a monotonic tick count. It wraps on overflow; the Machine only
// ever compares ticks through signed differences, so a single wraparound
// during a timer's lifetime is tolerated.
type Tick int32

// TimerID addresses a per-handler or global timer slot.
type TimerID uint32

// EventID identifies an external event delivered by the EventSource.
type EventID int32

// EventHandler is the active state of a Machine.
//
// Embed NopEventHandler to implement only the callbacks a state needs, or
// use EventHandlerFuncs to assemble a handler from optional functions.
type EventHandler interface {
	// OnInit runs when the handler becomes active.
	OnInit()
	// OnEvent runs for each external event.
	OnEvent(id EventID)
	// OnTimer runs when a per-handler timer fires.
	OnTimer(id TimerID)
	// OnDestroy runs when the handler is superseded or torn down.
	OnDestroy()
	// Release runs exactly once, after OnDestroy, or alone if the handler
	// was queued as the next handler but never became active.
	Release()
}

// NopEventHandler implements every EventHandler callback as a no-op.
type NopEventHandler struct{}

func (NopEventHandler) OnInit()         {}
func (NopEventHandler) OnEvent(EventID) {}
func (NopEventHandler) OnTimer(TimerID) {}
func (NopEventHandler) OnDestroy()      {}
func (NopEventHandler) Release()        {}

// EventHandlerFuncs is an EventHandler built from optional functions.
// Nil functions are replaced with no-ops when the handler is accepted.
type EventHandlerFuncs struct {
	OnInitFunc    func()
	OnEventFunc   func(id EventID)
	OnTimerFunc   func(id TimerID)
	OnDestroyFunc func()
	ReleaseFunc   func()
}

func (f EventHandlerFuncs) OnInit() {
	if f.OnInitFunc != nil {
		f.OnInitFunc()
	}
}

func (f EventHandlerFuncs) OnEvent(id EventID) {
	if f.OnEventFunc != nil {
		f.OnEventFunc(id)
	}
}

func (f EventHandlerFuncs) OnTimer(id TimerID) {
	if f.OnTimerFunc != nil {
		f.OnTimerFunc(id)
	}
}

func (f EventHandlerFuncs) OnDestroy() {
	if f.OnDestroyFunc != nil {
		f.OnDestroyFunc()
	}
}

func (f EventHandlerFuncs) Release() {
	if f.ReleaseFunc != nil {
		f.ReleaseFunc()
	}
}

// Handler is a deferred unit of work: a global timer callback or a message.
type Handler interface {
	// Invoke performs the work.
	Invoke()
	// Release runs exactly once when the work item's last use ends.
	Release()
}

// HandlerFuncs is a Handler built from functions. InvokeFunc is required;
// a nil ReleaseFunc is replaced with a no-op.
type HandlerFuncs struct {
	InvokeFunc  func()
	ReleaseFunc func()
}

func (f HandlerFuncs) Invoke() {
	if f.InvokeFunc != nil {
		f.InvokeFunc()
	}
}

func (f HandlerFuncs) Release() {
	if f.ReleaseFunc != nil {
		f.ReleaseFunc()
	}
}

// Func returns a Handler that runs fn and releases nothing.
func Func(fn func()) Handler {
	return HandlerFuncs{InvokeFunc: fn}
}

func nop() {}

// eventHandler is the sanitized form of an accepted EventHandler.
type eventHandler struct {
	onInit    func()
	onEvent   func(EventID)
	onTimer   func(TimerID)
	onDestroy func()
	release   func()
}

// sanitizeEventHandler returns nil if h is nil.
func sanitizeEventHandler(h EventHandler) *eventHandler {
	var f EventHandlerFuncs
	switch v := h.(type) {
	case nil:
		return nil
	case *EventHandlerFuncs:
		if v == nil {
			return nil
		}
		f = *v
	case EventHandlerFuncs:
		f = v
	default:
		if isNil(v) {
			return nil
		}
		return &eventHandler{
			onInit:    v.OnInit,
			onEvent:   v.OnEvent,
			onTimer:   v.OnTimer,
			onDestroy: v.OnDestroy,
			release:   v.Release,
		}
	}

	eh := &eventHandler{
		onInit:    f.OnInitFunc,
		onEvent:   f.OnEventFunc,
		onTimer:   f.OnTimerFunc,
		onDestroy: f.OnDestroyFunc,
		release:   f.ReleaseFunc,
	}
	if eh.onInit == nil {
		eh.onInit = nop
	}
	if eh.onEvent == nil {
		eh.onEvent = func(EventID) {}
	}
	if eh.onTimer == nil {
		eh.onTimer = func(TimerID) {}
	}
	if eh.onDestroy == nil {
		eh.onDestroy = nop
	}
	if eh.release == nil {
		eh.release = nop
	}
	return eh
}

// genericHandler is the sanitized form of an accepted Handler. The zero
// value is the empty slot.
type genericHandler struct {
	invoke  func()
	release func()
}

// sanitizeHandler reports ok=false if h is nil or has no invoke function.
func sanitizeHandler(h Handler) (genericHandler, bool) {
	var f HandlerFuncs
	switch v := h.(type) {
	case nil:
		return genericHandler{}, false
	case *HandlerFuncs:
		if v == nil {
			return genericHandler{}, false
		}
		f = *v
	case HandlerFuncs:
		f = v
	default:
		if isNil(v) {
			return genericHandler{}, false
		}
		return genericHandler{invoke: v.Invoke, release: v.Release}, true
	}

	if f.InvokeFunc == nil {
		return genericHandler{}, false
	}
	gh := genericHandler{invoke: f.InvokeFunc, release: f.ReleaseFunc}
	if gh.release == nil {
		gh.release = nop
	}
	return gh, true
}

// isNilHandler distinguishes "no handler at all" from "handler without
// invoke", which are reported identically but checked at different points.
func isNilHandler(h Handler) bool {
	switch v := h.(type) {
	case nil:
		return true
	case *HandlerFuncs:
		return v == nil
	}
	return isNil(h)
}

// isNil reports whether v is nil or a typed nil such as (*T)(nil).
func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Chan, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
