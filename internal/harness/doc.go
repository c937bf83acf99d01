// Package harness runs scripted scenarios against the sample state
// machine and checks the callback trace they produce.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: timer_repeat
//	description: "A repeating timer fires once per period"
//	start_tick: 0
//	config:
//	  max_timer: 4
//	steps:
//	  - command: set-timer 1 100 repeat-on
//	  - advance: 100
//	  - resume: 1
//	  - post_outer: 1
//	  - command: kill-timer 9
//	    expect_error: COMMAND
//	assertions:
//	  - type: trace_count
//	    callback: on_timer
//	    count: 1
//
// Each step does exactly one thing:
//
//   - command: console words, encoded to an event, queued, then one ResumeAndYield
//   - advance: move the manual clock forward by n ticks
//   - resume: call ResumeAndYield n times
//   - post_outer: post n messages with source "outer"
//
// expect_error names the error code the step must produce. A step without
// expect_error must produce none.
//
// # Assertion Types
//
//   - trace_contains: an event with the callback (and source/arg, if given) was recorded
//   - trace_order: the listed events appear in order, gaps allowed
//   - trace_count: a callback was recorded exactly count times
//   - timer_state: a timer slot was expired (or armed) after the last step
//   - error_count: steps produced exactly count errors (of code, if given)
//
// Events in trace_order are written "callback", "source->callback" or
// the full "source->object->callback".
//
// # Deterministic Testing
//
// Every scenario runs on a fresh Machine and Host with a
// testutil.ManualClock, so time only moves on advance steps. After the
// last step the machine is cleaned up and finalized, so the trace ends
// with the teardown callbacks.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/timer_repeat.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
