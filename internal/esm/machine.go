package esm

import (
	"io"
	"log/slog"
)

// Default capacities, matching the reference build configuration.
const (
	DefaultMaxTimers       = 8
	DefaultMaxGlobalTimers = 8
)

// State is the lifecycle state of a Machine.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StatePrepared
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StatePrepared:
		return "prepared"
	default:
		return "unknown"
	}
}

// Option configures a Machine.
type Option func(*Machine)

// WithMaxTimers sets the number of per-handler timer slots. Values below 1
// are ignored.
func WithMaxTimers(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.maxTimers = n
		}
	}
}

// WithMaxGlobalTimers sets the number of global timer slots. Values below 1
// are ignored.
func WithMaxGlobalTimers(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.maxGlobalTimers = n
		}
	}
}

// WithLogger sets the logger used for lifecycle transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Machine is an event state machine bound to one Platform.
//
// All methods except PostMessage must be called from the goroutine that
// drives ResumeAndYield.
type Machine struct {
	platform Platform
	logger   *slog.Logger

	maxTimers       int
	maxGlobalTimers int

	timers       []timerSlot
	globalTimers []globalTimerSlot

	// Guarded by the platform lock.
	cells       []messageCell
	head, tail  CellID
	queued      int
	initialized bool
	prepared    bool

	dispatching bool
	current     *eventHandler
	next        *eventHandler
}

// New creates a Machine in the uninitialized state.
func New(platform Platform, opts ...Option) *Machine {
	m := &Machine{
		platform:        platform,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxTimers:       DefaultMaxTimers,
		maxGlobalTimers: DefaultMaxGlobalTimers,
		head:            noCell,
		tail:            noCell,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.timers = make([]timerSlot, m.maxTimers)
	m.globalTimers = make([]globalTimerSlot, m.maxGlobalTimers)
	m.stopTimers()
	for i := range m.globalTimers {
		m.globalTimers[i] = globalTimerSlot{timerSlot: timerSlot{expired: true}}
	}
	return m
}

// State returns the current lifecycle state.
func (m *Machine) State() State {
	switch {
	case m.prepared:
		return StatePrepared
	case m.initialized:
		return StateInitialized
	default:
		return StateUninitialized
	}
}

// MaxTimers returns the number of per-handler timer slots.
func (m *Machine) MaxTimers() int { return m.maxTimers }

// MaxGlobalTimers returns the number of global timer slots.
func (m *Machine) MaxGlobalTimers() int { return m.maxGlobalTimers }

// Initialize moves the Machine from Uninitialized to Initialized.
func (m *Machine) Initialize() error {
	const op = "initialize"

	if m.platform == nil {
		return parameterError(op, "nil platform")
	}
	if m.initialized {
		return stateError(op, "already initialized")
	}
	if err := m.platform.Initialize(); err != nil {
		return platformError(op, err)
	}

	capacity := m.platform.MessageCapacity()
	if capacity < 0 {
		capacity = 0
	}

	m.platform.Lock()
	m.cells = make([]messageCell, capacity)
	m.head, m.tail, m.queued = noCell, noCell, 0
	m.initialized = true
	m.platform.Unlock()

	m.logger.Debug("esm initialized",
		"max_timers", m.maxTimers,
		"max_global_timers", m.maxGlobalTimers,
		"message_capacity", capacity)
	return nil
}

// Finalize moves the Machine back to Uninitialized, running Cleanup first
// if the Machine is still prepared. It does nothing when the Machine is not
// initialized or when called from inside a callback.
func (m *Machine) Finalize() {
	if !m.initialized || m.dispatching {
		return
	}
	if m.prepared {
		if err := m.Cleanup(); err != nil {
			m.logger.Warn("implicit cleanup failed", "error", err)
		}
	}

	m.platform.Lock()
	m.initialized = false
	m.cells = nil
	m.platform.Unlock()

	m.platform.Finalize()
	m.logger.Debug("esm finalized")
}

// Prepare installs h as the active handler and moves the Machine from
// Initialized to Prepared. h.OnInit runs before Prepare returns.
func (m *Machine) Prepare(h EventHandler) error {
	const op = "prepare"

	eh := sanitizeEventHandler(h)
	if eh == nil {
		return parameterError(op, "nil event handler")
	}
	if !m.initialized {
		return stateError(op, "not initialized")
	}
	if m.prepared {
		return stateError(op, "already prepared")
	}
	if err := m.platform.Prepare(); err != nil {
		return platformError(op, err)
	}

	m.stopTimers()
	for i := range m.globalTimers {
		m.globalTimers[i] = globalTimerSlot{timerSlot: timerSlot{expired: true}}
	}
	m.current = eh
	m.next = nil

	m.platform.Lock()
	m.head, m.tail, m.queued = noCell, noCell, 0
	m.prepared = true
	m.platform.Unlock()

	m.logger.Debug("esm prepared")

	m.dispatching = true
	defer func() { m.dispatching = false }()
	eh.onInit()
	return nil
}

// ResumeAndYield runs one bounded, non-blocking dispatch pass: a pending
// handler swap, at most one event, expired timers, expired global timers,
// then the message queue as it stood when draining began.
func (m *Machine) ResumeAndYield() error {
	const op = "resume_and_yield"

	if err := m.checkPrepared(op); err != nil {
		return err
	}
	if m.dispatching {
		return stateError(op, "called from inside a callback")
	}

	m.dispatching = true
	defer func() { m.dispatching = false }()

	m.applyPendingSwap()
	m.processEvent()
	m.processTimers()
	m.processGlobalTimers()
	m.processMessages()
	return nil
}

// Cleanup moves the Machine from Prepared to Initialized. Pending messages
// are executed, armed global timers are released, and the active handler is
// torn down. A queued next handler that never became active is released.
func (m *Machine) Cleanup() error {
	const op = "cleanup"

	if err := m.checkPrepared(op); err != nil {
		return err
	}
	if m.dispatching {
		return stateError(op, "called from inside a callback")
	}

	m.dispatching = true
	defer func() { m.dispatching = false }()
	m.processMessages()

	m.platform.Lock()
	m.prepared = false
	stragglers := m.detachMessages()
	m.platform.Unlock()
	m.releaseMessages(stragglers)

	m.stopTimers()
	m.stopGlobalTimers()

	current, next := m.current, m.next
	m.current, m.next = nil, nil
	current.onDestroy()
	current.release()
	if next != nil {
		next.release()
	}

	m.logger.Debug("esm cleaned up")

	if err := m.platform.Cleanup(); err != nil {
		return platformError(op, err)
	}
	return nil
}

// SetNextHandler queues h to replace the active handler. The swap is
// committed after the current callback returns, or at the start of the
// next ResumeAndYield. A handler queued earlier and not yet applied is
// released.
func (m *Machine) SetNextHandler(h EventHandler) error {
	const op = "set_next_handler"

	eh := sanitizeEventHandler(h)
	if eh == nil {
		return parameterError(op, "nil event handler")
	}
	if err := m.checkPrepared(op); err != nil {
		return err
	}

	if prev := m.next; prev != nil {
		prev.release()
	}
	m.next = eh
	return nil
}

// applyPendingSwap is the only place the active handler is replaced.
func (m *Machine) applyPendingSwap() {
	next := m.next
	if next == nil {
		return
	}
	m.next = nil

	m.stopTimers()
	prev := m.current
	prev.onDestroy()
	prev.release()

	// Timers armed by the outgoing handler's teardown belong to it.
	m.stopTimers()
	m.current = next
	next.onInit()
}

func (m *Machine) processEvent() {
	id, ok := m.platform.PeekEvent()
	if !ok {
		return
	}
	m.current.onEvent(id)
	m.applyPendingSwap()
}

func (m *Machine) checkPrepared(op string) error {
	if !m.initialized || !m.prepared {
		return stateError(op, "machine is %s", m.State())
	}
	return nil
}
