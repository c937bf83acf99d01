package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/esm/internal/store"
	"github.com/roach88/esm/internal/testutil"
)

const chainScenario = `name: chain
description: "two state transitions"
steps:
  - command: next-handler
  - command: next-handler
assertions:
  - type: trace_count
    callback: on_init
    count: 3
`

const failingScenario = `name: failing
description: "expects a callback that never happens"
steps:
  - command: next-handler
assertions:
  - type: trace_contains
    callback: on_timer
`

const chainGolden = `{"scenario_name":"chain","trace":[` +
	`{"callback":"event_handler->on_init","seq":1,"source":"state_1"},` +
	`{"arg":"0x00000000","callback":"event_handler->on_event","seq":2,"source":"state_1"},` +
	`{"callback":"event_handler->on_destroy","seq":3,"source":"state_1"},` +
	`{"callback":"event_handler->release","seq":4,"source":"state_1"},` +
	`{"callback":"event_handler->on_init","seq":5,"source":"state_2"},` +
	`{"arg":"0x00000000","callback":"event_handler->on_event","seq":6,"source":"state_2"},` +
	`{"callback":"event_handler->on_destroy","seq":7,"source":"state_2"},` +
	`{"callback":"event_handler->release","seq":8,"source":"state_2"},` +
	`{"callback":"event_handler->on_init","seq":9,"source":"state_3"},` +
	`{"callback":"event_handler->on_destroy","seq":10,"source":"state_3"},` +
	`{"callback":"event_handler->release","seq":11,"source":"state_3"}]}`

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func executeTest(t *testing.T, opts *TestOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newTestCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := executeTest(t, &TestOptions{RootOptions: &RootOptions{Format: "text"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := executeTest(t, &TestOptions{RootOptions: &RootOptions{Format: "text"}}, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := executeTest(t, &TestOptions{RootOptions: &RootOptions{Format: "text"}}, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := executeTest(t, &TestOptions{RootOptions: &RootOptions{Format: "json"}}, t.TempDir())
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTestCommandPassingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "chain.yaml", chainScenario)

	out, err := executeTest(t, &TestOptions{RootOptions: &RootOptions{Format: "text"}}, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ chain")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "chain.yaml", chainScenario)
	writeScenario(t, dir, "failing.yaml", failingScenario)

	out, err := executeTest(t, &TestOptions{RootOptions: &RootOptions{Format: "text"}}, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ failing")
	assert.Contains(t, out, "on_timer")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestTestCommandFailingScenarioJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "failing.yaml", failingScenario)

	out, err := executeTest(t, &TestOptions{RootOptions: &RootOptions{Format: "json"}}, dir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
}

func TestTestCommandInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\n")

	out, err := executeTest(t, &TestOptions{RootOptions: &RootOptions{Format: "text"}}, dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "chain.yaml", chainScenario)
	writeScenario(t, dir, "failing.yaml", failingScenario)

	out, err := executeTest(t, &TestOptions{RootOptions: &RootOptions{Format: "text"}}, dir, "--filter", "ch*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
	assert.NotContains(t, out, "failing")
}

func TestTestCommandUpdateWritesGolden(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "chain.yaml", chainScenario)

	out, err := executeTest(t, &TestOptions{RootOptions: &RootOptions{Format: "text"}}, dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "golden updated")

	data, err := os.ReadFile(filepath.Join(dir, "golden", "chain.golden"))
	require.NoError(t, err)
	assert.Equal(t, chainGolden, string(data))
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "chain.yaml", chainScenario)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "chain.golden"), []byte(`{"scenario_name":"chain","trace":[]}`), 0644))

	out, err := executeTest(t, &TestOptions{RootOptions: &RootOptions{Format: "text"}}, dir)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommandGoldenMatch(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "chain.yaml", chainScenario)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "chain.golden"), []byte(chainGolden), 0644))

	out, err := executeTest(t, &TestOptions{RootOptions: &RootOptions{Format: "text"}}, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ chain")
}

func TestTestCommandRecordsSessions(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "chain.yaml", chainScenario)
	dbPath := filepath.Join(t.TempDir(), "esm.db")

	opts := &TestOptions{
		RootOptions:      &RootOptions{Format: "json"},
		SessionGenerator: testutil.NewFixedSessionGenerator("session-chain"),
	}
	out, err := executeTest(t, opts, dir, "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "session-chain", resp.Data.Scenarios[0].SessionID)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	sess, err := st.ReadSession(context.Background(), "session-chain")
	require.NoError(t, err)
	assert.Equal(t, "chain", sess.Name)
	assert.Equal(t, int64(8), sess.Config["max_timer"])

	events, err := st.ReadEvents(context.Background(), "session-chain", "")
	require.NoError(t, err)
	assert.Len(t, events, 11)
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a.yaml", chainScenario)
	writeScenario(t, dir, "b.yml", chainScenario)
	writeScenario(t, dir, "notes.txt", "ignored")

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = findScenarioFiles(dir, "[")
	require.Error(t, err)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "timer_repeat.golden"),
		goldenFilePath(filepath.Join("scenarios", "timer_repeat.yaml")))
}
