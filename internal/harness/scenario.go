package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gridfill/internal/enrich"
	"github.com/roach88/gridfill/internal/order"
	"github.com/roach88/gridfill/internal/record"
)

// Scenario defines an enrichment scenario: seed records, a task, and
// assertions over the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Limit is the scheduler concurrency limit. Zero means the default.
	Limit int `yaml:"limit,omitempty"`

	// Columns declares sortable columns and their types (string, number,
	// bool, any).
	Columns map[string]string `yaml:"columns,omitempty"`

	// Records are the seed rows. Each needs an integer id.
	Records []map[string]any `yaml:"records"`

	// Task configures a stub task. Exactly one of Task or Source is set.
	Task *TaskSpec `yaml:"task,omitempty"`

	// Source configures the HTTP enricher against a stub service.
	Source *SourceSpec `yaml:"source,omitempty"`

	// Drop lists records deleted from the store just before their update
	// is applied.
	Drop []int64 `yaml:"drop,omitempty"`

	// CancelAfter cancels the run once this many records have settled.
	CancelAfter int `yaml:"cancel_after,omitempty"`

	// Assertions validate the outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// TaskSpec configures a stub task.
type TaskSpec struct {
	// Fields is the update every successful record receives.
	Fields map[string]any `yaml:"fields"`

	// Fail maps record ids to error messages. An empty message means the
	// stub's default failure.
	Fail map[int64]string `yaml:"fail,omitempty"`

	// Panic lists records whose task panics.
	Panic []int64 `yaml:"panic,omitempty"`
}

// SourceSpec configures the HTTP enricher.
type SourceSpec struct {
	Query    string            `yaml:"query"`
	Format   string            `yaml:"format,omitempty"`
	Extract  string            `yaml:"extract"`
	Target   string            `yaml:"target,omitempty"`
	Mappings map[string]string `yaml:"mappings,omitempty"`

	// Responses maps the formatted lookup value to the service reply.
	Responses map[string]Response `yaml:"responses"`
}

// Response is one stub service reply. Status defaults to 200.
type Response struct {
	Status int `yaml:"status,omitempty"`
	Body   any `yaml:"body"`
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Id lists used by outcomes. A nil list is not checked; use [] to
	// require none.
	Succeeded []int64 `yaml:"succeeded,omitempty"`
	Failed    []int64 `yaml:"failed,omitempty"`
	Dropped   []int64 `yaml:"dropped,omitempty"`
	Skipped   []int64 `yaml:"skipped,omitempty"`

	// ID, Expect and Absent are used by record. Expect is a subset match.
	ID     int64          `yaml:"id,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
	Absent []string       `yaml:"absent,omitempty"`

	// Sort is used by order and sort_error.
	Sort []string `yaml:"sort,omitempty"`

	// IDs is the expected order (order).
	IDs []int64 `yaml:"ids,omitempty"`

	// Error is a substring of the expected error (sort_error).
	Error string `yaml:"error,omitempty"`

	// Count is the upper bound for max_outstanding.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertOutcomes       = "outcomes"
	AssertRecord         = "record"
	AssertOrder          = "order"
	AssertSortError      = "sort_error"
	AssertMaxOutstanding = "max_outstanding"
	AssertIdempotent     = "idempotent"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every .yaml and .yml file in dir, sorted by path.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Limit < 0 {
		return fmt.Errorf("limit must be at least 1")
	}

	if (s.Task == nil) == (s.Source == nil) {
		return fmt.Errorf("exactly one of task or source is required")
	}

	if s.Source != nil {
		if s.Source.Query == "" {
			return fmt.Errorf("source.query is required")
		}
		if !validKind(s.Source.Extract) {
			return fmt.Errorf("source.extract: unknown extractor %q", s.Source.Extract)
		}
	}

	for name, typ := range s.Columns {
		if _, err := order.ParseType(typ); err != nil {
			return fmt.Errorf("columns.%s: %w", name, err)
		}
	}

	for i, raw := range s.Records {
		if _, err := seedRecord(raw); err != nil {
			return fmt.Errorf("records[%d]: %w", i, err)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOutcomes:
		if a.Succeeded == nil && a.Failed == nil && a.Dropped == nil && a.Skipped == nil {
			return fmt.Errorf("assertions[%d]: at least one id list is required for outcomes", index)
		}
	case AssertRecord:
		if a.ID == 0 {
			return fmt.Errorf("assertions[%d]: id is required for record", index)
		}
		if len(a.Expect) == 0 && len(a.Absent) == 0 {
			return fmt.Errorf("assertions[%d]: expect or absent is required for record", index)
		}
	case AssertOrder:
		if a.IDs == nil {
			return fmt.Errorf("assertions[%d]: ids is required for order", index)
		}
	case AssertSortError:
		if len(a.Sort) == 0 {
			return fmt.Errorf("assertions[%d]: sort is required for sort_error", index)
		}
	case AssertMaxOutstanding:
		if a.Count < 1 {
			return fmt.Errorf("assertions[%d]: count must be at least 1 for max_outstanding", index)
		}
	case AssertIdempotent:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func validKind(k string) bool {
	for _, kind := range enrich.Kinds {
		if string(kind) == k {
			return true
		}
	}
	return false
}

// seedRecord converts a YAML row into a record.
func seedRecord(raw map[string]any) (record.Record, error) {
	flat, err := record.NewFields(raw)
	if err != nil {
		return record.Record{}, err
	}
	return record.FromFlat(flat)
}
