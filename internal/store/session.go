package store

import "github.com/google/uuid"

// Session is one recorded run.
type Session struct {
	ID         string
	Name       string
	StartedSeq int64
	Config     map[string]any
}

// SessionIDGenerator produces session ids.
type SessionIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session ids, so listing
// sessions by id also lists them by creation time.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewSession returns a Session with an id from gen.
func NewSession(gen SessionIDGenerator, name string, config map[string]any) Session {
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	return Session{ID: gen.Generate(), Name: name, Config: config}
}
