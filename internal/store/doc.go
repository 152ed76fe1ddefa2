// Package store provides the SQLite-backed Record Store: the single owner of
// grid record state, plus an append-only journal of enrichment runs.
//
// The store holds:
//   - Records: id, insertion position, field map (JSON) and a version counter
//   - Runs: one header per scheduling run (source, limit, counts, digest)
//   - Outcomes: per-record journal lines for a run, ordered by seq
//
// # Update Semantics
//
// ApplyUpdate is the only way record fields change after insertion. It merges
// a partial update field by field, last write wins, and never touches fields
// the update does not name. Absent ids return NotFoundError and write nothing.
//
// # Ordering
//
//   - Snapshot returns records in insertion order (ORDER BY position, id)
//   - Journal lines are ordered by the scheduler's logical seq, never by
//     wall-clock time
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
