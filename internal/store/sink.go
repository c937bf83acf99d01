package store

import (
	"context"
	"sync"

	"github.com/roach88/esm/internal/trace"
)

// SessionWriter persists recorded events as they happen. It implements
// trace.Observer.
//
// Observe cannot return an error, so the first write failure is kept and
// later events are dropped; check Err when the run ends.
type SessionWriter struct {
	store     *Store
	ctx       context.Context
	sessionID string

	mu  sync.Mutex
	err error
}

// NewSessionWriter writes sess and returns a writer appending to it.
func NewSessionWriter(ctx context.Context, s *Store, sess Session) (*SessionWriter, error) {
	if err := s.WriteSession(ctx, sess); err != nil {
		return nil, err
	}
	return &SessionWriter{store: s, ctx: ctx, sessionID: sess.ID}, nil
}

// SessionID returns the id events are written under.
func (w *SessionWriter) SessionID() string { return w.sessionID }

// Observe implements trace.Observer.
func (w *SessionWriter) Observe(ev trace.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	w.err = w.store.WriteEvent(w.ctx, w.sessionID, ev)
}

// Err returns the first write error, if any.
func (w *SessionWriter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
