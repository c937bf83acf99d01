// Package store provides SQLite-backed storage for recorded trace sessions.
//
// A session is one run of the console or of a harness scenario. The
// runtime itself keeps no persistent state; the store only archives the
// callback trace a run produced so it can be inspected later with
// `esm trace`.
//
//   - Sessions: one row per run, keyed by a UUIDv7 id
//   - Trace events: the run's callbacks, keyed by (session_id, seq)
//
// # Ordering
//
// All ordering uses the recorder's logical seq, never timestamps. Every
// event query ends in ORDER BY seq ASC so reads are deterministic.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
