// Package order implements the multi-key comparator used to produce ordered
// views of grid records.
//
// A Spec is an ordered list of (field, direction) keys. The first key is the
// primary order; later keys break ties left to right. When every key
// compares equal the original relative order is kept (stable sort).
//
// Comparison dispatches on the type a field is declared with in the Schema:
//   - string: locale-aware collation (golang.org/x/text/collate)
//   - number: sign of the difference
//   - bool: false < true
//   - any: dispatch on the runtime kind when both values share it
//
// A missing value, or one whose kind differs from the declared type,
// compares as equal and falls through to the next key.
//
// Keys not present in the Schema are rejected before any ordering is done.
// A typo in a sort key is an error, never a silent no-op.
package order
