package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/gridfill/internal/order"
	"github.com/roach88/gridfill/internal/record"
	"github.com/roach88/gridfill/internal/scheduler"
	"github.com/roach88/gridfill/internal/store"
)

// AssertionContext provides what assertions need beyond the Result.
type AssertionContext struct {
	Ctx    context.Context
	Report *scheduler.Report
	Schema order.Schema

	// Rerun executes the task again over the final snapshot.
	Rerun func() (*scheduler.Report, error)
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Outcomes []store.Outcome // Journal for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Outcomes) > 0 {
		fmt.Fprintf(&buf, "\nJournal:\n")
		for _, o := range e.Outcomes {
			fmt.Fprintf(&buf, "  %s\n", formatOutcome(o))
		}
	}

	return buf.String()
}

// assertOutcomes compares each given id list with the report, ignoring order.
func assertOutcomes(result *Result, report *scheduler.Report, a Assertion) error {
	checks := []struct {
		name     string
		expected []int64
		actual   []record.ID
	}{
		{"succeeded", a.Succeeded, report.Succeeded},
		{"failed", a.Failed, report.FailedIDs()},
		{"dropped", a.Dropped, report.Dropped},
		{"skipped", a.Skipped, report.Skipped},
	}

	for _, c := range checks {
		if c.expected == nil {
			continue
		}
		want := sortedIDs(toIDs(c.expected))
		got := sortedIDs(c.actual)
		if !slices.Equal(want, got) {
			return &AssertionError{
				Type:     AssertOutcomes,
				Expected: fmt.Sprintf("%s %s", c.name, formatIDs(want)),
				Actual:   fmt.Sprintf("%s %s", c.name, formatIDs(got)),
				Outcomes: result.Outcomes,
			}
		}
	}
	return nil
}

// assertRecord checks one record's final fields (subset match) and that
// the absent fields are missing.
func assertRecord(result *Result, a Assertion) error {
	id := record.ID(a.ID)
	idx := slices.IndexFunc(result.Records, func(r record.Record) bool { return r.ID == id })
	if idx < 0 {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("record %d in final snapshot", id),
			Actual:   "record not found",
			Outcomes: result.Outcomes,
		}
	}
	rec := result.Records[idx]

	expected, err := record.NewFields(a.Expect)
	if err != nil {
		return fmt.Errorf("assertion %s: expect: %w", AssertRecord, err)
	}
	for _, key := range expected.SortedKeys() {
		got, ok := rec.Get(key)
		if !ok || !valuesEqual(got, expected[key]) {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: fmt.Sprintf("record %d %s = %s", id, key, formatValue(expected[key])),
				Actual:   fmt.Sprintf("record %d %s = %s", id, key, formatLookup(got, ok)),
				Outcomes: result.Outcomes,
			}
		}
	}

	for _, key := range a.Absent {
		if got, ok := rec.Fields[key]; ok {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: fmt.Sprintf("record %d has no %s", id, key),
				Actual:   fmt.Sprintf("record %d %s = %s", id, key, formatValue(got)),
				Outcomes: result.Outcomes,
			}
		}
	}
	return nil
}

// assertOrder sorts the final snapshot and compares the id sequence.
func assertOrder(result *Result, schema order.Schema, a Assertion) error {
	spec, err := order.ParseSpec(a.Sort...)
	if err != nil {
		return &AssertionError{Type: AssertOrder, Expected: "valid sort keys", Actual: err.Error()}
	}

	sorted, err := order.New(schema).Sort(result.Records, spec)
	if err != nil {
		return &AssertionError{
			Type:     AssertOrder,
			Expected: fmt.Sprintf("order %s", formatIDs(toIDs(a.IDs))),
			Actual:   err.Error(),
		}
	}

	got := make([]record.ID, len(sorted))
	for i, r := range sorted {
		got[i] = r.ID
	}
	if want := toIDs(a.IDs); !slices.Equal(want, got) {
		return &AssertionError{
			Type:     AssertOrder,
			Expected: fmt.Sprintf("order by %s: %s", spec, formatIDs(want)),
			Actual:   fmt.Sprintf("order by %s: %s", spec, formatIDs(got)),
		}
	}
	return nil
}

// assertSortError checks that sorting fails and produces no ordering.
func assertSortError(result *Result, schema order.Schema, a Assertion) error {
	spec, err := order.ParseSpec(a.Sort...)
	if err == nil {
		var sorted []record.Record
		sorted, err = order.New(schema).Sort(result.Records, spec)
		if err == nil {
			return &AssertionError{
				Type:     AssertSortError,
				Expected: fmt.Sprintf("error containing %q", a.Error),
				Actual:   fmt.Sprintf("order %s", formatIDs(idsOf(sorted))),
			}
		}
		if sorted != nil {
			return &AssertionError{
				Type:     AssertSortError,
				Expected: "no ordering alongside the error",
				Actual:   fmt.Sprintf("%d records", len(sorted)),
			}
		}
	}
	if !strings.Contains(err.Error(), a.Error) {
		return &AssertionError{
			Type:     AssertSortError,
			Expected: fmt.Sprintf("error containing %q", a.Error),
			Actual:   err.Error(),
		}
	}
	return nil
}

func assertMaxOutstanding(report *scheduler.Report, a Assertion) error {
	if report.MaxOutstanding > a.Count {
		return &AssertionError{
			Type:     AssertMaxOutstanding,
			Expected: fmt.Sprintf("at most %d in flight", a.Count),
			Actual:   fmt.Sprintf("%d in flight", report.MaxOutstanding),
		}
	}
	return nil
}

// assertIdempotent runs the task a second time and compares digests.
func assertIdempotent(actx *AssertionContext) error {
	if actx.Rerun == nil {
		return fmt.Errorf("assertion %s: no rerun available", AssertIdempotent)
	}
	second, err := actx.Rerun()
	if err != nil {
		return fmt.Errorf("assertion %s: rerun: %w", AssertIdempotent, err)
	}
	if second.Digest != actx.Report.Digest {
		return &AssertionError{
			Type:     AssertIdempotent,
			Expected: fmt.Sprintf("digest %s", actx.Report.Digest),
			Actual:   fmt.Sprintf("digest %s", second.Digest),
		}
	}
	return nil
}

// EvaluateAssertions runs every assertion and returns failure messages.
// Assertions are independent: one failing does not stop the rest.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertOutcomes:
			err = assertOutcomes(result, actx.Report, a)
		case AssertRecord:
			err = assertRecord(result, a)
		case AssertOrder:
			err = assertOrder(result, actx.Schema, a)
		case AssertSortError:
			err = assertSortError(result, actx.Schema, a)
		case AssertMaxOutstanding:
			err = assertMaxOutstanding(actx.Report, a)
		case AssertIdempotent:
			err = assertIdempotent(actx)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func valuesEqual(actual, expected record.Value) bool {
	if actual.Kind() != expected.Kind() {
		return false
	}
	return actual == expected
}

func toIDs(ids []int64) []record.ID {
	out := make([]record.ID, len(ids))
	for i, id := range ids {
		out[i] = record.ID(id)
	}
	return out
}

func idsOf(records []record.Record) []record.ID {
	out := make([]record.ID, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func sortedIDs(ids []record.ID) []record.ID {
	out := slices.Clone(ids)
	slices.Sort(out)
	return out
}

func formatIDs(ids []record.ID) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, " ")
}

func formatValue(v record.Value) string {
	b, err := record.Fields{"v": v}.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	// {"v":...}
	return string(b[5 : len(b)-1])
}

func formatLookup(v record.Value, ok bool) string {
	if !ok {
		return "<absent>"
	}
	return formatValue(v)
}
