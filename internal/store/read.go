package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/esm/internal/trace"
)

// ReadSession retrieves a session by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, started_seq, config
		FROM sessions
		WHERE id = ?
	`, id)
	return scanSession(row)
}

// ListSessions returns all sessions ordered by id. Ids are UUIDv7 in
// production, so this is creation order.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, started_seq, config
		FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// ReadEvents returns a session's events in seq order. A non-empty
// callback keeps only events matching it (see trace.Event.Matches).
func (s *Store) ReadEvents(ctx context.Context, sessionID, callback string) ([]trace.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, source, callback, arg
		FROM trace_events
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []trace.Event
	for rows.Next() {
		var ev trace.Event
		if err := rows.Scan(&ev.Seq, &ev.Source, &ev.Callback, &ev.Arg); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if callback != "" && !ev.Matches(callback) {
			continue
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// LastSeq returns the highest recorded seq of a session, or 0 if the
// session has no events. Used to continue numbering in a resumed session.
func (s *Store) LastSeq(ctx context.Context, sessionID string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM trace_events WHERE session_id = ?
	`, sessionID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var (
		sess Session
		cfg  string
	)
	if err := row.Scan(&sess.ID, &sess.Name, &sess.StartedSeq, &cfg); err != nil {
		return Session{}, err
	}
	config, err := unmarshalConfig(cfg)
	if err != nil {
		return Session{}, err
	}
	sess.Config = config
	return sess, nil
}
