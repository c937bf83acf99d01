package store

import (
	"context"
	"fmt"

	"github.com/roach88/esm/internal/trace"
)

// WriteSession inserts a session row.
//
// Idempotent: rewriting an existing id is a no-op (ON CONFLICT DO NOTHING).
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		return fmt.Errorf("write session: empty id")
	}
	cfg, err := marshalConfig(sess.Config)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, name, started_seq, config)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.Name, sess.StartedSeq, cfg)
	if err != nil {
		return fmt.Errorf("write session %s: %w", sess.ID, err)
	}
	return nil
}

// WriteEvent appends one trace event to a session.
//
// Idempotent: an event whose (session_id, seq) already exists is ignored.
func (s *Store) WriteEvent(ctx context.Context, sessionID string, ev trace.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trace_events (session_id, seq, source, callback, arg)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`, sessionID, ev.Seq, ev.Source, ev.Callback, ev.Arg)
	if err != nil {
		return fmt.Errorf("write event %s/%d: %w", sessionID, ev.Seq, err)
	}
	return nil
}

// WriteEvents appends events in a single transaction.
func (s *Store) WriteEvents(ctx context.Context, sessionID string, events []trace.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trace_events (session_id, seq, source, callback, arg)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, sessionID, ev.Seq, ev.Source, ev.Callback, ev.Arg); err != nil {
			return fmt.Errorf("write event %s/%d: %w", sessionID, ev.Seq, err)
		}
	}
	return tx.Commit()
}

// DeleteSession removes a session and its events.
// Deleting a missing session is not an error.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}
