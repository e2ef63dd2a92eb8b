// Package store provides SQLite-backed durable storage for storyboard runs.
//
// The store is an append-only log with three tables:
//   - runs: one row per run (scenario hash, canonical scenario, plan timing)
//   - firings: one row per story firing, keyed by (run_id, seq)
//   - actuations: one row per effect applied to a vehicle by a firing
//
// Writing a firing is atomic (the firing and its actuations commit together)
// and idempotent on (run_id, seq): re-writing an identical firing is a no-op,
// re-writing a different one under the same key is an error.
//
// All reads order by seq ASC, then actuation index, so a run reads back in
// exactly the order the board produced it.
//
// Connections are opened with WAL journaling, synchronous=NORMAL, a five
// second busy timeout and foreign keys on, all passed as go-sqlite3 DSN
// parameters. Schema changes are numbered migrations tracked in
// PRAGMA user_version.
package store
