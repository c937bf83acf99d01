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

func TestConfigCommandDefaults(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewConfigCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	parsed, err := config.Parse("out.cue", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, config.Default(), parsed)
}

func TestConfigCommandFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "esm.cue")
	require.NoError(t, os.WriteFile(path, []byte("max_timer: 3\n"), 0644))

	buf := &bytes.Buffer{}
	cmd := NewConfigCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--config", path})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string        `json:"status"`
		Data   config.Config `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.MaxTimer)
}

func TestConfigCommandInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "esm.cue")
	require.NoError(t, os.WriteFile(path, []byte("max_timer: 500\n"), 0644))

	cmd := NewConfigCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
