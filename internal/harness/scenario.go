package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/esm/internal/config"
	"github.com/roach88/esm/internal/esm"
)

// Scenario is a scripted run of the sample state machine.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// StartTick is the manual clock's initial value. Set it near the top of
	// the Tick range to exercise wraparound.
	StartTick int32 `yaml:"start_tick,omitempty"`

	// Config overrides the default capacities.
	Config *ConfigOverrides `yaml:"config,omitempty"`

	// Steps run in order after Initialize and Prepare.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace, timer slots and step errors.
	Assertions []Assertion `yaml:"assertions"`
}

// ConfigOverrides replaces selected default capacities.
type ConfigOverrides struct {
	MaxTimer       *int `yaml:"max_timer,omitempty"`
	MaxGlobalTimer *int `yaml:"max_global_timer,omitempty"`
	MaxMessage     *int `yaml:"max_message,omitempty"`
	EventQueueSize *int `yaml:"event_queue_size,omitempty"`
}

// Apply returns cfg with the overrides applied.
func (o *ConfigOverrides) Apply(cfg config.Config) config.Config {
	if o == nil {
		return cfg
	}
	if o.MaxTimer != nil {
		cfg.MaxTimer = *o.MaxTimer
	}
	if o.MaxGlobalTimer != nil {
		cfg.MaxGlobalTimer = *o.MaxGlobalTimer
	}
	if o.MaxMessage != nil {
		cfg.MaxMessage = *o.MaxMessage
	}
	if o.EventQueueSize != nil {
		cfg.EventQueueSize = *o.EventQueueSize
	}
	return cfg
}

// Step is one scenario action. Exactly one of Command, Advance, Resume
// and PostOuter is set.
type Step struct {
	// Command holds console words, e.g. "set-timer 1 100 repeat-off".
	Command string `yaml:"command,omitempty"`

	// Advance moves the clock forward by this many ticks.
	Advance int `yaml:"advance,omitempty"`

	// Resume calls ResumeAndYield this many times.
	Resume int `yaml:"resume,omitempty"`

	// PostOuter posts this many messages with source "outer".
	PostOuter int `yaml:"post_outer,omitempty"`

	// ExpectError is the error code this step must produce.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Kind returns the name of the action the step performs.
func (s Step) Kind() string {
	switch {
	case s.Command != "":
		return "command"
	case s.Advance != 0:
		return "advance"
	case s.Resume != 0:
		return "resume"
	case s.PostOuter != 0:
		return "post_outer"
	default:
		return ""
	}
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Callback, Source and Arg select events (trace_contains, trace_count).
	// Source and Arg are optional.
	Callback string `yaml:"callback,omitempty"`
	Source   string `yaml:"source,omitempty"`
	Arg      string `yaml:"arg,omitempty"`

	// Events is the expected order (trace_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the expected number of matches (trace_count, error_count).
	Count int `yaml:"count,omitempty"`

	// Timer, Global and Expired describe a timer slot (timer_state).
	Timer   *int  `yaml:"timer,omitempty"`
	Global  bool  `yaml:"global,omitempty"`
	Expired *bool `yaml:"expired,omitempty"`

	// Code restricts error_count to one error code.
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertTimerState    = "timer_state"
	AssertErrorCount    = "error_count"
)

// knownCodes lists the values accepted by expect_error and error_count.
var knownCodes = []string{
	string(esm.CodeParameter),
	string(esm.CodeResourceExhausted),
	string(esm.CodeInvalidState),
	string(esm.CodePlatformFailure),
	CodeCommand,
	CodeQueueFull,
	CodeUnknown,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if err := s.Config.Apply(config.Default()).Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s Step) error {
	set := 0
	if strings.TrimSpace(s.Command) != "" {
		set++
	}
	for _, n := range []int{s.Advance, s.Resume, s.PostOuter} {
		if n != 0 {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of command, advance, resume, post_outer is required", index)
	}

	if s.Advance < 0 || s.Resume < 0 || s.PostOuter < 0 {
		return fmt.Errorf("steps[%d]: %s must be positive", index, s.Kind())
	}
	if s.Advance > 0x7FFF_FFFF {
		return fmt.Errorf("steps[%d]: advance must fit in a tick", index)
	}

	if s.ExpectError != "" && !isKnownCode(s.ExpectError) {
		return fmt.Errorf("steps[%d]: unknown error code %q", index, s.ExpectError)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Callback == "" {
			return fmt.Errorf("assertions[%d]: callback is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Callback == "" {
			return fmt.Errorf("assertions[%d]: callback is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTimerState:
		if a.Timer == nil {
			return fmt.Errorf("assertions[%d]: timer is required for timer_state", index)
		}
		if *a.Timer < 0 {
			return fmt.Errorf("assertions[%d]: timer must be non-negative for timer_state", index)
		}
		if a.Expired == nil {
			return fmt.Errorf("assertions[%d]: expired is required for timer_state", index)
		}
	case AssertErrorCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for error_count", index)
		}
		if a.Code != "" && !isKnownCode(a.Code) {
			return fmt.Errorf("assertions[%d]: unknown error code %q", index, a.Code)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func isKnownCode(code string) bool {
	for _, c := range knownCodes {
		if c == code {
			return true
		}
	}
	return false
}
