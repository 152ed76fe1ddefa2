package scheduler

import "github.com/roach88/gridfill/internal/record"

// Failure pairs a record with the error that kept it from being updated.
type Failure struct {
	RecordID record.ID `json:"record_id"`
	Err      error     `json:"-"`
}

// Report summarizes one run. Every launched record appears in exactly one of
// Succeeded, Failed or Dropped; records never launched appear in Skipped.
type Report struct {
	RunID          string      `json:"run_id"`
	Launched       []record.ID `json:"launched"`
	Succeeded      []record.ID `json:"succeeded"`
	Failed         []Failure   `json:"failed"`
	Dropped        []record.ID `json:"dropped"`
	Skipped        []record.ID `json:"skipped"`
	MaxOutstanding int         `json:"max_outstanding"`
	Digest         string      `json:"digest,omitempty"`
}

func newReport(runID string, total int) *Report {
	return &Report{
		RunID:     runID,
		Launched:  make([]record.ID, 0, total),
		Succeeded: []record.ID{},
		Failed:    []Failure{},
		Dropped:   []record.ID{},
		Skipped:   []record.ID{},
	}
}

// Attempted returns every record that settled, in no particular order.
func (r *Report) Attempted() []record.ID {
	out := make([]record.ID, 0, len(r.Succeeded)+len(r.Failed)+len(r.Dropped))
	out = append(out, r.Succeeded...)
	for _, f := range r.Failed {
		out = append(out, f.RecordID)
	}
	return append(out, r.Dropped...)
}

// FailedIDs returns the ids of failed records in settle order.
func (r *Report) FailedIDs() []record.ID {
	out := make([]record.ID, len(r.Failed))
	for i, f := range r.Failed {
		out[i] = f.RecordID
	}
	return out
}
