package testutil

import (
	"fmt"

	"github.com/roach88/gridfill/internal/record"
)

// GridRecords returns n grid rows with ids 1..n, shaped like the demo grid:
// title, client, country, progress, available and an empty linkedin cell.
func GridRecords(n int) []record.Record {
	countries := []string{"France", "Chad", "Peru", "Japan"}
	out := make([]record.Record, n)
	for i := 0; i < n; i++ {
		id := int64(i + 1)
		out[i] = record.Record{
			ID: record.ID(id),
			Fields: record.Fields{
				"title":     record.String(fmt.Sprintf("Task %d", id)),
				"client":    record.String(fmt.Sprintf("Client %d", id)),
				"country":   record.String(countries[i%len(countries)]),
				"progress":  record.Number(float64((i * 10) % 100)),
				"available": record.Bool(i%2 == 0),
				"linkedin":  record.Null{},
			},
		}
	}
	return out
}

// IDs returns the ids of records in order.
func IDs(records []record.Record) []record.ID {
	out := make([]record.ID, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
