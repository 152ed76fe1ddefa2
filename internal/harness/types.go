package harness

import (
	"github.com/roach88/gridfill/internal/record"
	"github.com/roach88/gridfill/internal/scheduler"
	"github.com/roach88/gridfill/internal/store"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Run is the journal header of the scenario's run.
	Run store.Run `json:"run"`

	// Outcomes are the run's journal lines sorted by record id. Seq is
	// zeroed: it reflects completion order, which varies between runs.
	Outcomes []store.Outcome `json:"outcomes"`

	// Records is the final snapshot in insertion order.
	Records []record.Record `json:"records"`

	// Errors contains assertion failure messages.
	Errors []string `json:"errors,omitempty"`

	report *scheduler.Report
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Outcomes: []store.Outcome{},
		Records:  []record.Record{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Report returns the scheduler report of the run.
func (r *Result) Report() *scheduler.Report {
	return r.report
}
