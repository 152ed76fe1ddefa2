package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridfill/internal/record"
	"github.com/roach88/gridfill/internal/store"
)

func TestScenarios_Golden(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, s))
		})
	}
}

func stubScenario() *Scenario {
	return &Scenario{
		Name:        "inline",
		Description: "inline scenario",
		Limit:       2,
		Columns:     map[string]string{"title": "string"},
		Records: []map[string]any{
			{"id": 1, "title": "b"},
			{"id": 2, "title": "a"},
		},
		Task: &TaskSpec{Fields: map[string]any{"done": true}},
	}
}

func TestRun_Passes(t *testing.T) {
	s := stubScenario()
	s.Assertions = []Assertion{
		{Type: AssertOutcomes, Succeeded: []int64{2, 1}},
		{Type: AssertRecord, ID: 2, Expect: map[string]any{"done": true, "title": "a"}},
		{Type: AssertOrder, Sort: []string{"title"}, IDs: []int64{2, 1}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, FirstRunID, result.Run.ID)
	assert.Equal(t, store.RunCompleted, result.Run.Status)
	assert.Len(t, result.Outcomes, 2)
	require.NotNil(t, result.Report())
	assert.NotEmpty(t, result.Report().Digest)
}

func TestRun_ReportsFailedAssertions(t *testing.T) {
	s := stubScenario()
	s.Assertions = []Assertion{
		{Type: AssertOutcomes, Failed: []int64{1}},
		{Type: AssertRecord, ID: 1, Absent: []string{"done"}},
		{Type: AssertRecord, ID: 9, Expect: map[string]any{"title": "x"}},
		{Type: AssertOrder, Sort: []string{"title"}, IDs: []int64{1, 2}},
		{Type: AssertSortError, Sort: []string{"title"}, Error: "unsupported"},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "failed -")
	assert.Contains(t, result.Errors[1], "record 1 has no done")
	assert.Contains(t, result.Errors[2], "record 9 in final snapshot")
	assert.Contains(t, result.Errors[3], "order by title:asc: 1 2")
	assert.Contains(t, result.Errors[4], `error containing "unsupported"`)
}

func TestRun_SortErrorProducesNoOrdering(t *testing.T) {
	s := stubScenario()
	s.Assertions = []Assertion{
		{Type: AssertSortError, Sort: []string{"missing"}, Error: `unsupported sort key "missing"`},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FailMessageDefaults(t *testing.T) {
	s := stubScenario()
	s.Task.Fail = map[int64]string{1: ""}
	s.Assertions = []Assertion{{Type: AssertOutcomes, Failed: []int64{1}}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Equal(t, "stub failure", result.Outcomes[0].Error)
	assert.Equal(t, record.ID(1), result.Outcomes[0].RecordID)
}

func TestFormatResult(t *testing.T) {
	result := NewResult()
	result.Run = store.Run{ID: "r", Source: "stub", Limit: 1, Total: 1, Status: store.RunCompleted, Succeeded: 1}
	result.Outcomes = []store.Outcome{{
		RecordID: 1,
		Outcome:  store.OutcomeApplied,
		Fields:   record.Fields{"b": record.Bool(true), "a": record.Number(2)},
	}}
	result.Records = []record.Record{{ID: 1, Fields: record.Fields{"a": record.Number(2), "b": record.Bool(true)}}}

	out, err := FormatResult("x", result)
	require.NoError(t, err)

	want := strings.Join([]string{
		"scenario: x",
		"run: r source=stub limit=1 status=completed",
		"counts: total=1 succeeded=1 failed=0 dropped=0 skipped=0",
		"outcomes:",
		`  1 applied {"a":2,"b":true}`,
		"records:",
		`  {"a":2,"b":true,"id":1}`,
		"",
	}, "\n")
	assert.Equal(t, want, string(out))
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/partial_failure.yaml")
	require.NoError(t, err)
	assert.Equal(t, "partial_failure", s.Name)
	assert.Equal(t, 2, s.Limit)
	assert.Len(t, s.Records, 5)
	require.NotNil(t, s.Task)
	assert.Equal(t, "lookup failed", s.Task.Fail[3])
	assert.Equal(t, []int64{1, 2, 4, 5}, s.Assertions[0].Succeeded)
	assert.NotNil(t, s.Assertions[0].Dropped)
	assert.Empty(t, s.Assertions[0].Dropped)
	assert.Nil(t, s.Assertions[0].Skipped)
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: x\ndescription: d\ntask: {}\nassertion: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			content: "description: d\ntask: {}\nassertions: [{type: idempotent}]\n",
			wantErr: "name is required",
		},
		{
			name:    "task and source",
			content: "name: x\ndescription: d\ntask: {}\nsource: {query: q, extract: link}\nassertions: [{type: idempotent}]\n",
			wantErr: "exactly one of task or source",
		},
		{
			name:    "bad extractor",
			content: "name: x\ndescription: d\nsource: {query: q, extract: xml}\nassertions: [{type: idempotent}]\n",
			wantErr: "unknown extractor",
		},
		{
			name:    "bad column type",
			content: "name: x\ndescription: d\ncolumns: {a: date}\ntask: {}\nassertions: [{type: idempotent}]\n",
			wantErr: "columns.a",
		},
		{
			name:    "record without id",
			content: "name: x\ndescription: d\nrecords: [{title: a}]\ntask: {}\nassertions: [{type: idempotent}]\n",
			wantErr: "records[0]",
		},
		{
			name:    "unknown assertion",
			content: "name: x\ndescription: d\ntask: {}\nassertions: [{type: trace_contains}]\n",
			wantErr: "unknown assertion type",
		},
		{
			name:    "empty outcomes",
			content: "name: x\ndescription: d\ntask: {}\nassertions: [{type: outcomes}]\n",
			wantErr: "at least one id list",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "s.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_NotFound(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/missing.yaml")
	assert.ErrorContains(t, err, "failed to read scenario file")
}
