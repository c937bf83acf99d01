package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/esm/internal/esm"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "esm.cue")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8, cfg.MaxTimer)
	assert.Equal(t, 8, cfg.MaxGlobalTimer)
	assert.Equal(t, 16, cfg.MaxMessage)
	assert.Equal(t, 32, cfg.EventQueueSize)
	assert.Equal(t, 10*time.Millisecond, cfg.PollInterval())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EmptyFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
max_timer:        4
max_message:      64
poll_interval_ms: 5
`))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.MaxTimer)
	assert.Equal(t, 8, cfg.MaxGlobalTimer)
	assert.Equal(t, 64, cfg.MaxMessage)
	assert.Equal(t, 32, cfg.EventQueueSize)
	assert.Equal(t, 5*time.Millisecond, cfg.PollInterval())
}

func TestLoad_ConstraintViolation(t *testing.T) {
	path := writeConfig(t, "max_timer: 128\n")
	_, err := Load(path)
	require.Error(t, err)

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrCodeConstraint, cfgErr.Code)
}

func TestLoad_UnknownField(t *testing.T) {
	_, err := Load(writeConfig(t, "max_timer: 2\nmax_timers: 3\n"))
	require.Error(t, err)

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrCodeConstraint, cfgErr.Code)
	assert.Contains(t, cfgErr.Message, "max_timers")
	require.True(t, cfgErr.Pos.IsValid())
	assert.Equal(t, 2, cfgErr.Pos.Line())
	assert.Contains(t, err.Error(), "esm.cue:2:")
}

func TestLoad_WrongType(t *testing.T) {
	_, err := Load(writeConfig(t, `max_message: "lots"`))
	require.Error(t, err)

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrCodeConstraint, cfgErr.Code)
}

func TestLoad_SyntaxError(t *testing.T) {
	_, err := Load(writeConfig(t, "max_timer: {\n"))
	require.Error(t, err)

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrCodeLoadFailed, cfgErr.Code)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.cue"))
	require.Error(t, err)

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrCodeNotFound, cfgErr.Code)
}

func TestValidate_RejectsOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.EventQueueSize = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.PollIntervalMS = 5000
	assert.Error(t, cfg.Validate())
}

func TestFormat_RoundTrips(t *testing.T) {
	cfg := Default()
	cfg.MaxTimer = 3

	out, err := cfg.Format()
	require.NoError(t, err)
	assert.Contains(t, string(out), "max_timer:")

	parsed, err := Parse("formatted.cue", out)
	require.NoError(t, err)
	assert.Equal(t, cfg, parsed)
}

func TestMachineOptions(t *testing.T) {
	cfg := Default()
	cfg.MaxTimer = 2
	cfg.MaxGlobalTimer = 3

	m := esm.New(nil, cfg.MachineOptions()...)
	assert.Equal(t, 2, m.MaxTimers())
	assert.Equal(t, 3, m.MaxGlobalTimers())

	pc := cfg.PlatformConfig()
	assert.Equal(t, 16, pc.MaxMessages)
	assert.Equal(t, 32, pc.EventQueueSize)
}

func TestMap(t *testing.T) {
	m := Default().Map()
	assert.Equal(t, int64(8), m["max_timer"])
	assert.Equal(t, int64(10), m["poll_interval_ms"])
	assert.Len(t, m, 5)
}
