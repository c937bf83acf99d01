// Package config loads esm runtime capacities from CUE.
//
// A config file is a CUE struct whose fields are unified with an embedded
// schema that supplies defaults and range constraints:
//
//	max_timer:        4
//	max_message:      64
//	poll_interval_ms: 5
//
// Unknown fields are rejected.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/format"
	"cuelang.org/go/cue/token"

	"github.com/roach88/esm/internal/esm"
	"github.com/roach88/esm/internal/platform"
)

//go:embed schema.cue
var schemaSource string

// Config holds the capacities of one runtime instance.
type Config struct {
	MaxTimer       int `json:"max_timer"`
	MaxGlobalTimer int `json:"max_global_timer"`
	MaxMessage     int `json:"max_message"`
	EventQueueSize int `json:"event_queue_size"`
	PollIntervalMS int `json:"poll_interval_ms"`
}

// Error codes, numbered like the rest of the CLI's diagnostics.
const (
	ErrCodeLoadFailed = "E004" // File could not be parsed
	ErrCodeNotFound   = "E005" // Path not found
	ErrCodeConstraint = "E006" // Value violates the schema
)

// Error is a configuration error with an optional CUE source position.
type Error struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Default returns the reference capacities.
func Default() Config {
	return Config{
		MaxTimer:       esm.DefaultMaxTimers,
		MaxGlobalTimer: esm.DefaultMaxGlobalTimers,
		MaxMessage:     platform.DefaultMaxMessages,
		EventQueueSize: platform.DefaultEventQueueSize,
		PollIntervalMS: 10,
	}
}

// Load reads and validates a CUE config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("config file not found: %s", path)}
	}
	if err != nil {
		return Config{}, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading config file: %v", err)}
	}
	return Parse(path, data)
}

// Parse validates CUE source. name is used in error positions.
func Parse(name string, data []byte) (Config, error) {
	ctx := cuecontext.New()

	file := ctx.CompileBytes(data, cue.Filename(name))
	if err := file.Err(); err != nil {
		return Config{}, convertCUEError(ErrCodeLoadFailed, err)
	}
	s := schema(ctx)
	if err := checkFields(s, file); err != nil {
		return Config{}, err
	}
	return decode(s.Unify(file))
}

// Validate checks c against the schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	_, err := decode(schema(ctx).Unify(ctx.Encode(c)))
	return err
}

// Format renders c as CUE source.
func (c Config) Format() ([]byte, error) {
	ctx := cuecontext.New()
	v := ctx.Encode(c)
	if err := v.Err(); err != nil {
		return nil, err
	}
	return format.Node(v.Syntax())
}

// MachineOptions returns the esm.Machine options for c.
func (c Config) MachineOptions() []esm.Option {
	return []esm.Option{
		esm.WithMaxTimers(c.MaxTimer),
		esm.WithMaxGlobalTimers(c.MaxGlobalTimer),
	}
}

// PlatformConfig returns the Host capacities for c.
func (c Config) PlatformConfig() platform.Config {
	return platform.Config{
		MaxMessages:    c.MaxMessage,
		EventQueueSize: c.EventQueueSize,
	}
}

// Map returns c keyed by its CUE field names, as stored with a session.
func (c Config) Map() map[string]any {
	return map[string]any{
		"max_timer":        int64(c.MaxTimer),
		"max_global_timer": int64(c.MaxGlobalTimer),
		"max_message":      int64(c.MaxMessage),
		"event_queue_size": int64(c.EventQueueSize),
		"poll_interval_ms": int64(c.PollIntervalMS),
	}
}

// PollInterval returns the driver loop period.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func schema(ctx *cue.Context) cue.Value {
	return ctx.CompileString(schemaSource, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
}

// checkFields rejects fields the schema does not declare.
func checkFields(s, file cue.Value) error {
	iter, err := file.Fields()
	if err != nil {
		return convertCUEError(ErrCodeLoadFailed, err)
	}
	for iter.Next() {
		sel := iter.Selector()
		if !s.LookupPath(cue.MakePath(sel)).Exists() {
			return &Error{
				Code:    ErrCodeConstraint,
				Message: fmt.Sprintf("unknown field %s", sel.String()),
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

func decode(v cue.Value) (Config, error) {
	if err := v.Validate(); err != nil {
		return Config{}, convertCUEError(ErrCodeConstraint, err)
	}
	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, convertCUEError(ErrCodeConstraint, err)
	}
	return cfg, nil
}

// convertCUEError keeps the first CUE error and its position.
func convertCUEError(code string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Code: code, Message: err.Error()}
	}
	first := errs[0]
	cfgErr := &Error{Code: code, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		cfgErr.Pos = positions[0]
	}
	return cfgErr
}
