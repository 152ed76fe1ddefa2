// Package gridspec compiles CUE grid specs into typed Go values.
//
// A grid spec declares the grid's columns (with the type the comparator
// dispatches on) and the enrichment sources that can fill them:
//
//	grid: {
//		columns: {
//			title:    {type: "string"}
//			progress: {type: "number"}
//		}
//		sources: link: {
//			env:     "GRIDFILL_SEARCH_URL"
//			query:   "client"
//			format:  "%s linkedin.com"
//			extract: "link"
//		}
//		concurrency: 4
//		timeout:     "10s"
//	}
//
// User values are unified with an embedded schema (schema.cue) before
// compilation, so type and enum mistakes are reported with CUE positions.
package gridspec
