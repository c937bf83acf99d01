package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/esm/internal/store"
	"github.com/roach88/esm/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Callback string // optional - filter to a callback name
}

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Events  int            `json:"events"`
	LastSeq int64          `json:"last_seq"`
	Config  map[string]any `json:"config,omitempty"`
}

// TraceResult holds the events of one recorded session.
type TraceResult struct {
	Session  string        `json:"session"`
	Name     string        `json:"name"`
	Callback string        `json:"callback,omitempty"`
	Events   []trace.Event `json:"events"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded sessions",
		Long: `Inspect sessions recorded with "esm console --db" or "esm test --db".

Without --session the recorded sessions are listed. With --session the
session's callbacks are printed in order, optionally filtered by callback
name. A bare name such as "on_timer" matches any object's on_timer.

Examples:
  esm trace --db ./esm.db
  esm trace --db ./esm.db --session 0192...
  esm trace --db ./esm.db --session 0192... --callback on_timer
  esm trace --db ./esm.db --session 0192... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to print")
	cmd.Flags().StringVar(&opts.Callback, "callback", "", "filter to a callback name")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return traceError(opts, cmd, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	if opts.Session == "" {
		if opts.Callback != "" {
			return NewExitError(ExitCommandError, "--callback requires --session")
		}
		return listSessions(ctx, opts, cmd, st)
	}

	sess, err := st.ReadSession(ctx, opts.Session)
	if errors.Is(err, sql.ErrNoRows) {
		return traceError(opts, cmd, ErrCodeSessionAbsent,
			fmt.Sprintf("session not found: %s", opts.Session), nil)
	}
	if err != nil {
		return traceError(opts, cmd, ErrCodeDatabase, "failed to read session", err)
	}

	events, err := st.ReadEvents(ctx, sess.ID, opts.Callback)
	if err != nil {
		return traceError(opts, cmd, ErrCodeDatabase, "failed to read events", err)
	}
	if events == nil {
		events = []trace.Event{}
	}

	result := TraceResult{
		Session:  sess.ID,
		Name:     sess.Name,
		Callback: opts.Callback,
		Events:   events,
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", SessionID: sess.ID, Data: result})
	}
	return outputTraceText(cmd.OutOrStdout(), result, sess.Config, opts.Verbose)
}

func listSessions(ctx context.Context, opts *TraceOptions, cmd *cobra.Command, st *store.Store) error {
	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return traceError(opts, cmd, ErrCodeDatabase, "failed to list sessions", err)
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		events, err := st.ReadEvents(ctx, sess.ID, "")
		if err != nil {
			return traceError(opts, cmd, ErrCodeDatabase, "failed to read session", err)
		}
		last, err := st.LastSeq(ctx, sess.ID)
		if err != nil {
			return traceError(opts, cmd, ErrCodeDatabase, "failed to read session", err)
		}
		summaries = append(summaries, SessionSummary{
			ID:      sess.ID,
			Name:    sess.Name,
			Events:  len(events),
			LastSeq: last,
			Config:  sess.Config,
		})
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(w, CLIResponse{Status: "ok", Data: summaries})
	}

	if len(summaries) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%s  %-20s %d events\n", s.ID, s.Name, s.Events)
	}
	return nil
}

// outputTraceText prints the session header followed by one line per event.
func outputTraceText(w io.Writer, result TraceResult, cfg map[string]any, verbose bool) error {
	fmt.Fprintf(w, "Session: %s (%s)\n", result.Session, result.Name)
	if verbose && len(cfg) > 0 {
		fmt.Fprintf(w, "Config:  %s\n", formatConfig(cfg))
	}
	fmt.Fprintln(w)

	if len(result.Events) == 0 {
		if result.Callback != "" {
			fmt.Fprintf(w, "  (no %s events)\n", result.Callback)
		} else {
			fmt.Fprintln(w, "  (no events)")
		}
		return nil
	}

	p := trace.NewPrinter(w).WithSeq()
	for _, ev := range result.Events {
		p.Observe(ev)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d event(s)\n", len(result.Events))
	return nil
}

// formatConfig formats a session config for display.
// Uses sorted keys to ensure deterministic output.
func formatConfig(cfg map[string]any) string {
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, cfg[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// traceError reports a failure in the requested format and returns the
// matching exit error.
func traceError(opts *TraceOptions, cmd *cobra.Command, code, message string, err error) error {
	exitCode := ExitCommandError
	if code == ErrCodeSessionAbsent {
		exitCode = ExitFailure
	}

	if opts.Format == "json" {
		msg := message
		if err != nil {
			msg = fmt.Sprintf("%s: %v", message, err)
		}
		if werr := writeJSON(cmd.OutOrStdout(), CLIResponse{
			Status:    "error",
			SessionID: opts.Session,
			Error:     &CLIError{Code: code, Message: msg},
		}); werr != nil {
			return werr
		}
	}

	if err != nil {
		return WrapExitError(exitCode, message, err)
	}
	return NewExitError(exitCode, message)
}
