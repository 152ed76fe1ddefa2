// Package scheduler drives a worklist of records through an enrichment task
// with at most N tasks in flight, applying each successful result to the
// record store as it settles.
//
// ARCHITECTURE:
//
// Single-Writer Dispatch Loop:
// Run owns a cursor over the worklist and a slot semaphore sized to the
// limit. It launches tasks while a slot is free and records remain, then
// blocks for the next settled result, releases its slot, applies it and
// loops. Each task runs on its own goroutine and only returns a
// record.Result; every ApplyUpdate during a run is issued from the Run
// goroutine, so no two merges ever interleave.
//
// Ordering:
//   - Launch order follows worklist order
//   - Apply order follows completion order (whatever the I/O produces)
//   - Journal lines are stamped with a logical seq from Clock, never wall time
//
// Failure Isolation:
// A failed or panicking task is logged at warn, journaled and reported. The
// record is left untouched and the run continues. An update for a record
// deleted mid-flight is dropped and reported.
//
// Cancellation:
// Cancelling the context stops further launches. Tasks already in flight
// receive the same context and are drained before Run returns the partial
// report together with ctx.Err(). Unlaunched records are listed as skipped.
package scheduler
