package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/esm/internal/config"
	"github.com/roach88/esm/internal/demo"
	"github.com/roach88/esm/internal/esm"
	"github.com/roach88/esm/internal/platform"
)

// ErrAlreadyStarted is returned by Start on a Driver that has been started.
var ErrAlreadyStarted = errors.New("driver already started")

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger for loop and command diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock replaces the Host's monotonic clock.
func WithClock(clock esm.Clock) Option {
	return func(d *Driver) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// WithHelpOutput sets where the help command writes. Defaults to io.Discard.
func WithHelpOutput(w io.Writer) Option {
	return func(d *Driver) {
		if w != nil {
			d.helpOut = w
		}
	}
}

// Driver runs a Machine with the sample handlers.
//
// Thread-safety: Exec may be called from any goroutine. The Machine itself
// is only ever touched by the loop goroutine, apart from PostMessage.
type Driver struct {
	machine  *esm.Machine
	host     *platform.Host
	sink     demo.Sink
	handlers *demo.Handlers
	limits   demo.Limits
	interval time.Duration
	clock    esm.Clock
	logger   *slog.Logger
	helpOut  io.Writer

	mu      sync.Mutex
	started bool
	done    chan struct{}
	err     error
}

// New builds a Driver from cfg. Every callback is reported to sink.
func New(cfg config.Config, sink demo.Sink, opts ...Option) *Driver {
	d := &Driver{
		sink:     sink,
		limits:   demo.Limits{MaxTimer: cfg.MaxTimer, MaxGlobalTimer: cfg.MaxGlobalTimer},
		interval: cfg.PollInterval(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		helpOut:  io.Discard,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.interval <= 0 {
		d.interval = 10 * time.Millisecond
	}

	hostOpts := []platform.Option{platform.WithLogger(d.logger)}
	if d.clock != nil {
		hostOpts = append(hostOpts, platform.WithClock(d.clock))
	}
	d.host = platform.NewHost(cfg.PlatformConfig(), hostOpts...)
	d.machine = esm.New(d.host, append(cfg.MachineOptions(), esm.WithLogger(d.logger))...)
	d.handlers = demo.NewHandlers(d.machine, sink, demo.WithErrorHandler(func(k demo.Kind, err error) {
		d.logger.Warn("command failed", "command", k.String(), "error", err)
	}))
	return d
}

// Start initializes and prepares the Machine on a new goroutine and returns
// once that has succeeded or failed. The loop then calls ResumeAndYield every
// poll interval until ctx is cancelled.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return ErrAlreadyStarted
	}
	d.started = true
	d.mu.Unlock()

	ready := make(chan error, 1)
	go d.run(ctx, ready)
	return <-ready
}

func (d *Driver) run(ctx context.Context, ready chan<- error) {
	defer close(d.done)

	if err := d.machine.Initialize(); err != nil {
		d.err = fmt.Errorf("initialize: %w", err)
		ready <- d.err
		return
	}
	if err := d.machine.Prepare(d.handlers.Initial()); err != nil {
		d.machine.Finalize()
		d.err = fmt.Errorf("prepare: %w", err)
		ready <- d.err
		return
	}
	ready <- nil

	d.logger.Info("main loop started", "interval", d.interval)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("main loop stopping", "reason", ctx.Err())
			if err := d.machine.Cleanup(); err != nil {
				d.err = fmt.Errorf("cleanup: %w", err)
			}
			d.machine.Finalize()
			d.logger.Info("main loop stopped")
			return
		case <-ticker.C:
			if err := d.machine.ResumeAndYield(); err != nil {
				d.logger.Warn("resume failed", "error", err)
			}
		}
	}
}

// Done is closed when the loop has exited.
func (d *Driver) Done() <-chan struct{} { return d.done }

// Wait blocks until the loop has exited and returns its teardown error.
func (d *Driver) Wait() error {
	<-d.done
	return d.err
}

// Exec runs one console command. It returns exit=true for the exit command.
//
// help writes the command table to the help output. post-msg-outer posts a
// message directly; every other command is encoded and queued as an event.
func (d *Driver) Exec(argv []string) (exit bool, err error) {
	if len(argv) == 0 {
		return false, nil
	}

	switch argv[0] {
	case demo.CommandExit:
		return true, nil
	case demo.CommandHelp:
		WriteHelp(d.helpOut)
		return false, nil
	case demo.CommandPostOuter:
		if err := demo.PostOuterMessage(d.machine, d.sink); err != nil {
			return false, fmt.Errorf("failed to post message from console: %w", err)
		}
		return false, nil
	}

	id, err := demo.EncodeCommand(argv, d.limits)
	if err != nil {
		return false, err
	}
	if err := d.host.PostEvent(id); err != nil {
		return false, err
	}
	return false, nil
}

// PendingEvents returns the number of queued commands not yet delivered.
func (d *Driver) PendingEvents() int {
	return d.host.PendingEvents()
}
