package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/esm/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "esm.cue")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func executeValidate(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateValidConfig(t *testing.T) {
	path := writeConfig(t, "max_timer: 4\nmax_message: 64\n")

	out, err := executeValidate(t, "text", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Config valid")
}

func TestValidateValidConfigJSON(t *testing.T) {
	path := writeConfig(t, "max_timer: 4\n")

	out, err := executeValidate(t, "json", path)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.NotNil(t, resp.Data.Config)
	assert.Equal(t, 4, resp.Data.Config.MaxTimer)
	assert.Equal(t, config.Default().MaxMessage, resp.Data.Config.MaxMessage)
}

func TestValidateMissingArgs(t *testing.T) {
	_, err := executeValidate(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestValidateNonExistentFile(t *testing.T) {
	out, err := executeValidate(t, "text", "/nonexistent/esm.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, config.ErrCodeNotFound)
}

func TestValidateUnknownField(t *testing.T) {
	path := writeConfig(t, "max_timer: 4\nmax_widgets: 2\n")

	out, err := executeValidate(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "line 2")
	assert.Contains(t, out, config.ErrCodeConstraint)
	assert.Contains(t, out, "max_widgets")
}

func TestValidateConstraintViolation(t *testing.T) {
	path := writeConfig(t, "max_timer: 0\n")

	out, err := executeValidate(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, config.ErrCodeConstraint)
}

func TestValidateSyntaxError(t *testing.T) {
	path := writeConfig(t, "max_timer: \n")

	out, err := executeValidate(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, config.ErrCodeLoadFailed)
}

func TestValidateErrorJSON(t *testing.T) {
	path := writeConfig(t, "max_timer: 4\nmax_widgets: 2\n")

	out, err := executeValidate(t, "json", path)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, 2, resp.Data.Errors[0].Line)
	require.NotNil(t, resp.Error)
	assert.Equal(t, config.ErrCodeConstraint, resp.Error.Code)
}
