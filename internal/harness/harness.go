package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/esm/internal/config"
	"github.com/roach88/esm/internal/demo"
	"github.com/roach88/esm/internal/esm"
	"github.com/roach88/esm/internal/platform"
	"github.com/roach88/esm/internal/testutil"
	"github.com/roach88/esm/internal/trace"
)

// Option configures a scenario run.
type Option func(*runOptions)

type runOptions struct {
	logger    *slog.Logger
	observers []trace.Observer
}

// WithLogger logs step progress to logger. By default logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(o *runOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver also sends every recorded event to o, e.g. a
// store.SessionWriter.
func WithObserver(o trace.Observer) Option {
	return func(opts *runOptions) {
		if o != nil {
			opts.observers = append(opts.observers, o)
		}
	}
}

// Harness executes one scenario. It owns a fresh Machine, Host and clock.
type Harness struct {
	machine  *esm.Machine
	host     *platform.Host
	clock    *testutil.ManualClock
	recorder *trace.Recorder
	handlers *demo.Handlers
	limits   demo.Limits
	logger   *slog.Logger

	step     int
	stepErrs []StepError
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Build Host and Machine from the scenario config on a manual clock
// 2. Initialize and Prepare with state_1
// 3. Execute steps, checking expect_error
// 4. Capture timer slots, then Cleanup and Finalize
// 5. Evaluate assertions against the trace
//
// The returned error is reserved for failures to set up the run; scenario
// failures are reported through Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := runOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := scenario.Config.Apply(config.Default())
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	recOpts := make([]trace.RecorderOption, 0, len(o.observers))
	for _, obs := range o.observers {
		recOpts = append(recOpts, trace.WithObserver(obs))
	}

	h := &Harness{
		clock:    testutil.NewManualClock(esm.Tick(scenario.StartTick)),
		recorder: trace.NewRecorder(recOpts...),
		limits:   demo.Limits{MaxTimer: cfg.MaxTimer, MaxGlobalTimer: cfg.MaxGlobalTimer},
		logger:   o.logger,
	}
	h.host = platform.NewHost(cfg.PlatformConfig(),
		platform.WithClock(h.clock),
		platform.WithLogger(o.logger))
	h.machine = esm.New(h.host, append(cfg.MachineOptions(), esm.WithLogger(o.logger))...)
	h.handlers = demo.NewHandlers(h.machine, h.recorder, demo.WithErrorHandler(func(k demo.Kind, err error) {
		h.recordError(fmt.Errorf("%s: %w", k, err))
	}))

	if err := h.machine.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	if err := h.machine.Prepare(h.handlers.Initial()); err != nil {
		h.machine.Finalize()
		return nil, fmt.Errorf("failed to prepare: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(i, step, result)
	}

	result.Timers = h.timerStates(h.machine.MaxTimers(), h.machine.TimerExpired)
	result.GlobalTimers = h.timerStates(h.machine.MaxGlobalTimers(), h.machine.GlobalTimerExpired)

	if err := h.machine.Cleanup(); err != nil {
		result.AddError(fmt.Sprintf("cleanup failed: %v", err))
	}
	h.machine.Finalize()

	result.Trace = h.recorder.Events()
	result.StepErrors = h.stepErrs

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeStep runs one step and checks its errors against expect_error.
func (h *Harness) executeStep(i int, step Step, result *Result) {
	h.step = i
	first := len(h.stepErrs)

	switch step.Kind() {
	case "command":
		h.executeCommand(step.Command)
	case "advance":
		h.clock.Advance(esm.Tick(step.Advance))
	case "resume":
		for n := 0; n < step.Resume; n++ {
			h.recordError(h.machine.ResumeAndYield())
		}
	case "post_outer":
		for n := 0; n < step.PostOuter; n++ {
			h.recordError(demo.PostOuterMessage(h.machine, h.recorder))
		}
	}

	produced := h.stepErrs[first:]
	if step.ExpectError != "" {
		if !containsCode(produced, step.ExpectError) {
			result.AddError(fmt.Sprintf("steps[%d] (%s): expected %s error, got %s",
				i, step.Kind(), step.ExpectError, describeErrors(produced)))
		}
	} else if len(produced) > 0 {
		result.AddError(fmt.Sprintf("steps[%d] (%s): unexpected error: %s",
			i, step.Kind(), describeErrors(produced)))
	}

	h.logger.Info("step completed",
		"step", i,
		"kind", step.Kind(),
		"errors", len(produced),
		"events", h.recorder.Len(),
	)
}

// executeCommand encodes console words, queues the event and resumes once
// so the current handler sees it.
func (h *Harness) executeCommand(line string) {
	words := strings.Fields(line)
	if len(words) == 1 && words[0] == demo.CommandPostOuter {
		h.recordError(demo.PostOuterMessage(h.machine, h.recorder))
		return
	}

	id, err := demo.EncodeCommand(words, h.limits)
	if err != nil {
		h.recordError(err)
		return
	}
	if err := h.host.PostEvent(id); err != nil {
		h.recordError(err)
		return
	}
	h.recordError(h.machine.ResumeAndYield())
}

func (h *Harness) recordError(err error) {
	if err == nil {
		return
	}
	h.stepErrs = append(h.stepErrs, StepError{
		Step:    h.step,
		Code:    errorCode(err),
		Message: err.Error(),
	})
}

func (h *Harness) timerStates(n int, expired func(esm.TimerID) (bool, error)) []bool {
	states := make([]bool, n)
	for i := range states {
		// Ids below the configured count never fail.
		states[i], _ = expired(esm.TimerID(i))
	}
	return states
}

// errorCode classifies a step error.
func errorCode(err error) string {
	if code := esm.CodeOf(err); code != "" {
		return string(code)
	}
	var cmdErr *demo.CommandError
	switch {
	case errors.As(err, &cmdErr),
		errors.Is(err, demo.ErrUnknownCommand),
		errors.Is(err, demo.ErrNotEncodable):
		return CodeCommand
	case errors.Is(err, platform.ErrQueueFull):
		return CodeQueueFull
	default:
		return CodeUnknown
	}
}

func containsCode(errs []StepError, code string) bool {
	for _, e := range errs {
		if e.Code == code {
			return true
		}
	}
	return false
}

func describeErrors(errs []StepError) string {
	if len(errs) == 0 {
		return "none"
	}
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = fmt.Sprintf("%s (%s)", e.Code, e.Message)
	}
	return strings.Join(parts, "; ")
}
