package harness

import "github.com/roach88/esm/internal/trace"

// Error codes reported for step errors that do not come from the Machine.
// Machine errors use their esm.ErrorCode.
const (
	CodeCommand   = "COMMAND"    // console words could not be encoded
	CodeQueueFull = "QUEUE_FULL" // the host event queue rejected the event
	CodeUnknown   = "ERROR"
)

// StepError is an error produced while executing a step.
type StepError struct {
	Step    int    `json:"step"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step behaved as expected and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains every recorded callback in seq order, including the
	// teardown after the last step.
	Trace []trace.Event `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// StepErrors contains every error the steps produced, expected or not.
	StepErrors []StepError `json:"step_errors,omitempty"`

	// Timers and GlobalTimers hold each slot's expired flag after the last
	// step, before cleanup.
	Timers       []bool `json:"timers,omitempty"`
	GlobalTimers []bool `json:"global_timers,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []trace.Event{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
