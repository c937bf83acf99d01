package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/esm/internal/trace"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvent creates an event from state_1.
func createTestEvent(seq int64, callback, arg string) trace.Event {
	return trace.Event{Seq: seq, Source: "state_1", Callback: callback, Arg: arg}
}
