// Package harness runs YAML enrichment scenarios against the real scheduler,
// record store and comparator.
//
// # Scenario Format
//
//	name: partial_failure
//	description: "Record 3 fails; the other four are enriched"
//	limit: 2
//	columns: { name: string, progress: number }
//	records:
//	  - { id: 1, name: "A", progress: 10 }
//	task:
//	  fields: { enriched: true }
//	  fail: { 3: "lookup failed" }
//	assertions:
//	  - type: outcomes
//	    succeeded: [1, 2, 4, 5]
//	    failed: [3]
//	  - type: record
//	    id: 3
//	    absent: [enriched]
//	  - type: order
//	    sort: ["progress:desc"]
//	    ids: [5, 4, 3, 2, 1]
//
// A scenario supplies either a stub task or a source. A source runs the
// real HTTP enricher against an in-process server that answers each lookup
// value from the scenario's responses table; unknown lookups get 404.
//
// # Assertion Types
//
//   - outcomes: id lists per outcome (succeeded, failed, dropped, skipped)
//   - record: subset match of one record's final fields, plus absent fields
//   - order: sorting the final snapshot by sort yields ids
//   - sort_error: sorting by sort fails with an error containing error
//   - max_outstanding: no more than count tasks were ever in flight
//   - idempotent: a second run over the result leaves the snapshot digest
//     unchanged
//
// # Deterministic Testing
//
// Every scenario runs in a fresh in-memory SQLite store with fixed run ids
// (run-0001, run-0002) and a discarded log. Outcomes are reported sorted by
// record id, so golden output does not depend on completion order.
package harness
