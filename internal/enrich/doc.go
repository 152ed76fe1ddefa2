// Package enrich implements enrichment tasks: each one reads a lookup value
// from a record, issues an HTTP GET to an external service, and extracts
// fields from the JSON response into a partial update for that record.
//
// A Source never mutates records and never lets an error escape: network
// failures, bad statuses, malformed bodies and missing fields all come back
// as a failed record.Result keyed by the record id.
//
// Built-in extractors:
//   - profile: {"data": "<JSON array>"} -> image, headline, company fields
//   - coordinates: {"latitude": n, "longitude": n} -> "lat, lon"
//   - link: {"data": [{"link": "..."}]} -> a link field
//   - fields: arbitrary dotted paths (data.0.link) mapped to record fields
package enrich
