package trace

import (
	"fmt"
	"strings"
)

// Event is one recorded callback.
type Event struct {
	Seq      int64  `json:"seq" yaml:"seq"`
	Source   string `json:"source" yaml:"source"`
	Callback string `json:"callback" yaml:"callback"`
	Arg      string `json:"arg,omitempty" yaml:"arg,omitempty"`
}

// Line renders e the way the console prints it:
//
//	state_1->event_handler->on_timer(3);
func (e Event) Line() string {
	return fmt.Sprintf("%s->%s(%s);", e.Source, e.Callback, e.Arg)
}

// Matches reports whether e has the given callback. A callback without
// an object prefix matches the final segment, so "on_timer" matches
// "event_handler->on_timer".
func (e Event) Matches(callback string) bool {
	if e.Callback == callback {
		return true
	}
	if strings.Contains(callback, "->") {
		return false
	}
	return strings.HasSuffix(e.Callback, "->"+callback)
}

// Map returns e as a map for canonical encoding.
func (e Event) Map() map[string]any {
	m := map[string]any{
		"seq":      e.Seq,
		"source":   e.Source,
		"callback": e.Callback,
	}
	if e.Arg != "" {
		m["arg"] = e.Arg
	}
	return m
}
