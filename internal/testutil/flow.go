package testutil

import "sync"

// FixedSessionGenerator returns predetermined session ids.
//
// This enables deterministic store tests and byte-identical session
// listings. Once the ids run out the last one is repeated, so a test that
// only cares about one session can pass a single id.
//
// Thread-safety: FixedSessionGenerator is safe for concurrent use via internal mutex.
type FixedSessionGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedSessionGenerator creates a generator that returns ids in order.
//
// If no ids are given, Generate() returns "test-session-default".
func NewFixedSessionGenerator(ids ...string) *FixedSessionGenerator {
	if len(ids) == 0 {
		ids = []string{"test-session-default"}
	}
	return &FixedSessionGenerator{ids: ids}
}

// Generate returns the next predetermined id.
//
// Implements store.SessionIDGenerator interface.
func (g *FixedSessionGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.ids[g.idx]
	if g.idx < len(g.ids)-1 {
		g.idx++
	}
	return id
}
