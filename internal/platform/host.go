package platform

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/esm/internal/esm"
)

// Default capacities, matching the reference build configuration.
const (
	DefaultMaxMessages    = 16
	DefaultEventQueueSize = 32
)

// Config sizes the Host's fixed-capacity resources.
type Config struct {
	MaxMessages    int
	EventQueueSize int
}

// DefaultConfig returns the reference capacities.
func DefaultConfig() Config {
	return Config{
		MaxMessages:    DefaultMaxMessages,
		EventQueueSize: DefaultEventQueueSize,
	}
}

// Option configures a Host.
type Option func(*Host)

// WithClock replaces the default MonotonicClock, e.g. with a manual clock
// in tests.
func WithClock(clock esm.Clock) Option {
	return func(h *Host) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithLogger sets the logger for lifecycle and overflow messages.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Host implements esm.Platform on a hosted Go runtime.
type Host struct {
	mu     sync.Mutex
	cfg    Config
	clock  esm.Clock
	cells  *CellPool
	events *EventQueue
	logger *slog.Logger

	initialized atomic.Bool
	prepared    atomic.Bool
}

var _ esm.Platform = (*Host)(nil)

// NewHost creates a Host sized by cfg.
func NewHost(cfg Config, opts ...Option) *Host {
	h := &Host{
		cfg:    cfg,
		clock:  NewMonotonicClock(),
		cells:  NewCellPool(cfg.MaxMessages),
		events: NewEventQueue(cfg.EventQueueSize),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Config returns the capacities the Host was created with.
func (h *Host) Config() Config { return h.cfg }

// Lock acquires the message queue lock.
func (h *Host) Lock() { h.mu.Lock() }

// Unlock releases the message queue lock.
func (h *Host) Unlock() { h.mu.Unlock() }

// Now returns the current tick.
func (h *Host) Now() esm.Tick { return h.clock.Now() }

// Initialize implements esm.Platform.
func (h *Host) Initialize() error {
	if !h.initialized.CompareAndSwap(false, true) {
		return ErrAlreadyInitialized
	}
	h.prepared.Store(false)
	h.logger.Debug("platform initialized",
		"max_messages", h.cfg.MaxMessages,
		"event_queue_size", h.cfg.EventQueueSize)
	return nil
}

// Finalize implements esm.Platform.
func (h *Host) Finalize() {
	if !h.initialized.CompareAndSwap(true, false) {
		return
	}
	h.prepared.Store(false)
	h.logger.Debug("platform finalized")
}

// Prepare implements esm.Platform. It empties the cell pool and the event
// queue.
func (h *Host) Prepare() error {
	if !h.initialized.Load() {
		return ErrNotInitialized
	}
	if h.prepared.Load() {
		return ErrAlreadyPrepared
	}

	h.mu.Lock()
	h.cells.Reset()
	h.mu.Unlock()
	h.events.Reset()

	h.prepared.Store(true)
	h.logger.Debug("platform prepared")
	return nil
}

// Cleanup implements esm.Platform.
func (h *Host) Cleanup() error {
	if !h.initialized.Load() {
		return ErrNotInitialized
	}
	if !h.prepared.CompareAndSwap(true, false) {
		return ErrNotPrepared
	}
	if n := h.events.Len(); n > 0 {
		h.logger.Debug("discarding undelivered events", "count", n)
	}
	h.logger.Debug("platform cleaned up")
	return nil
}

// AllocMessageCell implements esm.CellArena. The Machine calls it with the
// Host lock held.
func (h *Host) AllocMessageCell() (esm.CellID, bool) {
	return h.cells.Alloc()
}

// DeallocMessageCell implements esm.CellArena. The Machine calls it with
// the Host lock held.
func (h *Host) DeallocMessageCell(id esm.CellID) {
	if !h.cells.Free(id) {
		h.logger.Warn("ignoring free of unallocated message cell", "cell", id)
	}
}

// MessageCapacity implements esm.CellArena.
func (h *Host) MessageCapacity() int {
	return h.cells.Cap()
}

// PeekEvent implements esm.EventSource.
func (h *Host) PeekEvent() (esm.EventID, bool) {
	if !h.prepared.Load() {
		return 0, false
	}
	return h.events.Pop()
}

// PostEvent queues an external event for the Machine. It may be called
// from any goroutine.
func (h *Host) PostEvent(id esm.EventID) error {
	if id < 0 {
		return fmt.Errorf("post event %d: %w", id, ErrInvalidEvent)
	}
	if !h.prepared.Load() {
		return fmt.Errorf("post event 0x%08X: %w", uint32(id), ErrNotPrepared)
	}
	if !h.events.Push(id) {
		h.logger.Warn("event queue full, dropping event",
			"event", fmt.Sprintf("0x%08X", uint32(id)),
			"capacity", h.events.Cap())
		return fmt.Errorf("post event 0x%08X: %w", uint32(id), ErrQueueFull)
	}
	return nil
}

// PendingEvents returns the number of events not yet delivered.
func (h *Host) PendingEvents() int {
	return h.events.Len()
}
