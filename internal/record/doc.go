// Package record defines the grid's data model: records with a stable id
// and a map of scalar cells, partial updates scoped to one record, and the
// tagged result of an enrichment task.
//
// This package imports nothing internal. Every other package builds on it.
//
// Cells are a sealed variant (Null, String, Number, Bool) so comparison and
// storage can dispatch on an explicit Kind instead of guessing from runtime
// types. Canonical JSON and Digest give a byte-stable encoding of a
// snapshot, which makes repeated enrichment runs comparable.
package record
