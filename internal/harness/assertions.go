package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/esm/internal/trace"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []trace.Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", ev.Seq, ev.Line())
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertTimerState:
		return assertTimerState(result, a)
	case AssertErrorCount:
		return assertErrorCount(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceContains checks that some event matches the callback, and the
// source and arg when given.
func assertTraceContains(events []trace.Event, a Assertion) error {
	for _, ev := range events {
		if matchEvent(ev, a) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describeSelector(a),
		Actual:   "not found in trace",
		Trace:    events,
	}
}

// assertTraceOrder checks that the listed events occur in order.
// Intervening events are allowed.
func assertTraceOrder(events []trace.Event, a Assertion) error {
	next := 0
	matchedAt := 0
	for _, ev := range events {
		if next == len(a.Events) {
			break
		}
		if matchRef(ev, a.Events[next]) {
			next++
			matchedAt = int(ev.Seq)
		}
	}

	if next < len(a.Events) {
		actual := fmt.Sprintf("missing %s", a.Events[next])
		if next > 0 {
			actual = fmt.Sprintf("missing %s after %s (seq %d)", a.Events[next], a.Events[next-1], matchedAt)
		}
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("events in order: %v", a.Events),
			Actual:   actual,
			Trace:    events,
		}
	}
	return nil
}

// assertTraceCount checks that exactly Count events match.
func assertTraceCount(events []trace.Event, a Assertion) error {
	count := 0
	for _, ev := range events {
		if matchEvent(ev, a) {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, describeSelector(a)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    events,
		}
	}
	return nil
}

// assertTimerState checks a timer slot as it stood after the last step.
func assertTimerState(result *Result, a Assertion) error {
	slots, kind := result.Timers, "timer"
	if a.Global {
		slots, kind = result.GlobalTimers, "global timer"
	}

	id := *a.Timer
	if id >= len(slots) {
		return &AssertionError{
			Type:     AssertTimerState,
			Expected: fmt.Sprintf("%s %d", kind, id),
			Actual:   fmt.Sprintf("only %d slots", len(slots)),
		}
	}

	if slots[id] != *a.Expired {
		return &AssertionError{
			Type:     AssertTimerState,
			Expected: fmt.Sprintf("%s %d %s", kind, id, timerWord(*a.Expired)),
			Actual:   timerWord(slots[id]),
		}
	}
	return nil
}

// assertErrorCount checks the number of step errors, optionally of one code.
func assertErrorCount(result *Result, a Assertion) error {
	count := 0
	for _, e := range result.StepErrors {
		if a.Code == "" || e.Code == a.Code {
			count++
		}
	}

	if count != a.Count {
		what := "errors"
		if a.Code != "" {
			what = a.Code + " errors"
		}
		return &AssertionError{
			Type:     AssertErrorCount,
			Expected: fmt.Sprintf("%d %s", a.Count, what),
			Actual:   fmt.Sprintf("%d %s: %s", count, what, describeErrors(result.StepErrors)),
		}
	}
	return nil
}

func matchEvent(ev trace.Event, a Assertion) bool {
	if a.Source != "" && ev.Source != a.Source {
		return false
	}
	if a.Arg != "" && ev.Arg != a.Arg {
		return false
	}
	return ev.Matches(a.Callback)
}

// matchRef matches "callback", "source->callback" or
// "source->object->callback".
func matchRef(ev trace.Event, ref string) bool {
	if ev.Matches(ref) {
		return true
	}
	rest, ok := strings.CutPrefix(ref, ev.Source+"->")
	return ok && ev.Matches(rest)
}

func describeSelector(a Assertion) string {
	s := a.Callback
	if a.Source != "" {
		s = a.Source + "->" + s
	}
	if a.Arg != "" {
		s += "(" + a.Arg + ")"
	}
	return s
}

func timerWord(expired bool) string {
	if expired {
		return "expired"
	}
	return "armed"
}
