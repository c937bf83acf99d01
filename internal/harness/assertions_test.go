package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/esm/internal/trace"
)

func sampleTrace() []trace.Event {
	return []trace.Event{
		{Seq: 1, Source: "state_1", Callback: "event_handler->on_init"},
		{Seq: 2, Source: "state_1", Callback: "event_handler->on_timer", Arg: "1"},
		{Seq: 3, Source: "global", Callback: "timer_handler->invoke"},
		{Seq: 4, Source: "state_1", Callback: "event_handler->on_timer", Arg: "2"},
		{Seq: 5, Source: "outer", Callback: "message->invoke"},
	}
}

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func TestAssertTraceContains(t *testing.T) {
	events := sampleTrace()

	assert.NoError(t, assertTraceContains(events, Assertion{Callback: "on_timer"}))
	assert.NoError(t, assertTraceContains(events, Assertion{Callback: "on_timer", Arg: "2"}))
	assert.NoError(t, assertTraceContains(events, Assertion{Callback: "invoke", Source: "outer"}))

	err := assertTraceContains(events, Assertion{Callback: "on_timer", Arg: "3"})
	require.Error(t, err)
	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, AssertTraceContains, aerr.Type)
	assert.Contains(t, err.Error(), "on_timer(3)")
	assert.Contains(t, err.Error(), "[5] outer->message->invoke();")
}

func TestAssertTraceOrder(t *testing.T) {
	events := sampleTrace()

	assert.NoError(t, assertTraceOrder(events, Assertion{
		Events: []string{"on_init", "global->invoke", "outer->message->invoke"},
	}))

	err := assertTraceOrder(events, Assertion{Events: []string{"outer->invoke", "global->invoke"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing global->invoke after outer->invoke (seq 5)")

	err = assertTraceOrder(events, Assertion{Events: []string{"on_destroy"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing on_destroy")
}

func TestAssertTraceCount(t *testing.T) {
	events := sampleTrace()

	assert.NoError(t, assertTraceCount(events, Assertion{Callback: "on_timer", Count: 2}))
	assert.NoError(t, assertTraceCount(events, Assertion{Callback: "invoke", Count: 2}))
	assert.NoError(t, assertTraceCount(events, Assertion{Callback: "invoke", Source: "global", Count: 1}))
	assert.NoError(t, assertTraceCount(events, Assertion{Callback: "on_destroy", Count: 0}))

	err := assertTraceCount(events, Assertion{Callback: "on_timer", Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 occurrences")
}

func TestAssertTimerState(t *testing.T) {
	result := &Result{
		Timers:       []bool{true, false},
		GlobalTimers: []bool{false},
	}

	assert.NoError(t, assertTimerState(result, Assertion{Timer: intPtr(0), Expired: boolPtr(true)}))
	assert.NoError(t, assertTimerState(result, Assertion{Timer: intPtr(1), Expired: boolPtr(false)}))
	assert.NoError(t, assertTimerState(result, Assertion{Timer: intPtr(0), Global: true, Expired: boolPtr(false)}))

	err := assertTimerState(result, Assertion{Timer: intPtr(1), Expired: boolPtr(true)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Actual: armed")

	err = assertTimerState(result, Assertion{Timer: intPtr(4), Global: true, Expired: boolPtr(true)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only 1 slots")
}

func TestAssertErrorCount(t *testing.T) {
	result := &Result{StepErrors: []StepError{
		{Step: 0, Code: "INVALID_STATE", Message: "a"},
		{Step: 1, Code: CodeCommand, Message: "b"},
	}}

	assert.NoError(t, assertErrorCount(result, Assertion{Count: 2}))
	assert.NoError(t, assertErrorCount(result, Assertion{Code: CodeCommand, Count: 1}))
	assert.NoError(t, assertErrorCount(result, Assertion{Code: "PARAMETER", Count: 0}))

	err := assertErrorCount(result, Assertion{Code: "INVALID_STATE", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 INVALID_STATE errors")
}

func TestEvaluateAssertions_PrefixesIndex(t *testing.T) {
	result := &Result{Trace: sampleTrace()}
	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Callback: "on_timer", Count: 2},
		{Type: AssertTraceContains, Callback: "on_destroy"},
	})

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "assertions[1]:")
}
