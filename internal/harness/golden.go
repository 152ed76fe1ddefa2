package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/gridfill/internal/record"
	"github.com/roach88/gridfill/internal/store"
)

// GoldenDir holds the golden files of the package's own scenarios.
const GoldenDir = "testdata/scenarios/golden"

// FormatResult renders a result as stable text for golden comparison:
// the run header, journal lines in record id order, and the final snapshot
// in canonical JSON.
func FormatResult(name string, result *Result) ([]byte, error) {
	var buf bytes.Buffer

	run := result.Run
	fmt.Fprintf(&buf, "scenario: %s\n", name)
	fmt.Fprintf(&buf, "run: %s source=%s limit=%d status=%s\n", run.ID, run.Source, run.Limit, run.Status)
	fmt.Fprintf(&buf, "counts: total=%d succeeded=%d failed=%d dropped=%d skipped=%d\n",
		run.Total, run.Succeeded, run.Failed, run.Dropped, run.Skipped)

	buf.WriteString("outcomes:\n")
	for _, o := range result.Outcomes {
		fmt.Fprintf(&buf, "  %s\n", formatOutcome(o))
	}

	buf.WriteString("records:\n")
	for _, r := range result.Records {
		b, err := record.MarshalCanonical(r)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "  %s\n", b)
	}

	return buf.Bytes(), nil
}

func formatOutcome(o store.Outcome) string {
	line := fmt.Sprintf("%d %s", o.RecordID, o.Outcome)
	if len(o.Fields) > 0 {
		if b, err := o.Fields.MarshalJSON(); err == nil {
			line += " " + string(b)
		}
	}
	if o.Error != "" {
		line += ": " + o.Error
	}
	return line
}

// RunWithGolden executes a scenario, fails the test on any assertion error,
// and compares the formatted result against testdata/scenarios/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	out, err := FormatResult(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, out)

	return nil
}
