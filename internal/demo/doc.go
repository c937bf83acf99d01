// Package demo provides the sample handler set driven by the console and
// the scenario harness.
//
// Three states form a ring, state_1 -> state_2 -> state_3 -> state_1. Each
// state decodes command events (see Command) into Machine calls, so a
// sequence of console lines exercises handler swaps, both timer kinds and
// the message queue. Every callback is reported to a Sink as
//
//	<source>-><object>-><callback>(<arg>);
//
// where source is the state name, "global" for global timers, or the
// poster's prefix for messages.
package demo
