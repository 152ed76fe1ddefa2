package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"

	"github.com/roach88/gridfill/internal/enrich"
	"github.com/roach88/gridfill/internal/order"
	"github.com/roach88/gridfill/internal/record"
	"github.com/roach88/gridfill/internal/scheduler"
	"github.com/roach88/gridfill/internal/store"
	"github.com/roach88/gridfill/internal/testutil"
)

// Run IDs handed out to the scenario's runs, in order.
const (
	FirstRunID  = "run-0001"
	SecondRunID = "run-0002"
)

// serviceHost replaces the stub server's address in recorded errors.
const serviceHost = "http://service.test"

// Harness holds the state of one scenario execution.
type Harness struct {
	store     *store.Store
	scheduler *scheduler.Scheduler
	task      scheduler.Task
	schema    order.Schema
	server    *httptest.Server
	logger    *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and insert seed records
// 2. Build the stub task or the HTTP source with its stub service
// 3. Run the scheduler once
// 4. Collect the journal and final snapshot
// 5. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	defer h.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := h.seed(ctx, scenario.Records); err != nil {
		return nil, fmt.Errorf("failed to seed records: %w", err)
	}

	h.schema, err = buildSchema(scenario.Columns)
	if err != nil {
		return nil, err
	}

	h.task, err = h.buildTask(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to build task: %w", err)
	}

	limit := scenario.Limit
	if limit == 0 {
		limit = scheduler.DefaultLimit
	}

	settled := 0
	opts := []scheduler.Option{
		scheduler.WithLimit(limit),
		scheduler.WithLogger(h.logger),
		scheduler.WithJournal(st),
		scheduler.WithRunIDGenerator(scheduler.NewFixedGenerator(FirstRunID, SecondRunID)),
	}
	if scenario.CancelAfter > 0 {
		opts = append(opts, scheduler.WithObserver(func(ev scheduler.Event) {
			if ev.Kind != scheduler.EventSettled {
				return
			}
			settled++
			if settled == scenario.CancelAfter {
				cancel()
			}
		}))
	}
	h.scheduler = scheduler.New(&dropper{Store: st, drop: idSet(scenario.Drop)}, opts...)

	seeds, err := st.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	report, err := h.scheduler.Run(ctx, seeds, h.task)
	if err != nil && !errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("run: %w", err)
	}

	result := NewResult()
	result.report = report

	bg := context.Background()
	if result.Run, err = st.ReadRun(bg, report.RunID); err != nil {
		return nil, err
	}
	if result.Outcomes, err = h.outcomes(bg, report.RunID); err != nil {
		return nil, err
	}
	if result.Records, err = st.Snapshot(bg); err != nil {
		return nil, err
	}

	actx := &AssertionContext{
		Ctx:    bg,
		Report: report,
		Schema: h.schema,
		Rerun: func() (*scheduler.Report, error) {
			return h.scheduler.Run(bg, result.Records, h.task)
		},
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func (h *Harness) close() {
	if h.server != nil {
		h.server.Close()
	}
}

func (h *Harness) seed(ctx context.Context, rows []map[string]any) error {
	records := make([]record.Record, 0, len(rows))
	for i, raw := range rows {
		rec, err := seedRecord(raw)
		if err != nil {
			return fmt.Errorf("records[%d]: %w", i, err)
		}
		records = append(records, rec)
	}
	return h.store.Insert(ctx, records...)
}

func (h *Harness) buildTask(scenario *Scenario) (scheduler.Task, error) {
	if scenario.Task != nil {
		return stubTask(scenario.Task)
	}

	spec := scenario.Source
	h.server = httptest.NewServer(stubService(spec.Responses))
	src := enrich.NewSource(enrich.Source{
		Name:     "service",
		URL:      h.server.URL + "/search?q=",
		Query:    spec.Query,
		Format:   spec.Format,
		Extract:  enrich.Kind(spec.Extract),
		Target:   spec.Target,
		Mappings: spec.Mappings,
	}, enrich.NewClient(enrich.WithClientLogger(h.logger)))
	if err := src.Validate(); err != nil {
		return nil, err
	}
	return src, nil
}

// outcomes returns the run's journal sorted by record id with seqs zeroed
// and the stub server address normalized.
func (h *Harness) outcomes(ctx context.Context, runID string) ([]store.Outcome, error) {
	lines, err := h.store.ReadOutcomes(ctx, runID)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		lines[i].Seq = 0
		if h.server != nil {
			lines[i].Error = strings.ReplaceAll(lines[i].Error, h.server.URL, serviceHost)
		}
	}
	slices.SortFunc(lines, func(a, b store.Outcome) int {
		return int(a.RecordID - b.RecordID)
	})
	return lines, nil
}

func stubTask(spec *TaskSpec) (*testutil.StubTask, error) {
	fields, err := record.NewFields(spec.Fields)
	if err != nil {
		return nil, fmt.Errorf("task.fields: %w", err)
	}

	task := &testutil.StubTask{
		Fields: func(record.Record) record.Fields { return fields.Clone() },
		Fail:   make(map[record.ID]error, len(spec.Fail)),
		Panic:  make(map[record.ID]bool, len(spec.Panic)),
	}
	for id, msg := range spec.Fail {
		var cause error
		if msg != "" {
			cause = errors.New(msg)
		}
		task.Fail[record.ID(id)] = cause
	}
	for _, id := range spec.Panic {
		task.Panic[record.ID(id)] = true
	}
	return task, nil
}

// stubService answers GET ?q=<lookup> from responses.
func stubService(responses map[string]Response) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, ok := responses[r.URL.Query().Get("q")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		status := resp.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp.Body)
	})
}

func buildSchema(columns map[string]string) (order.Schema, error) {
	schema := make(order.Schema, len(columns))
	for name, typ := range columns {
		t, err := order.ParseType(typ)
		if err != nil {
			return nil, fmt.Errorf("columns.%s: %w", name, err)
		}
		schema[name] = t
	}
	return schema, nil
}

func idSet(ids []int64) map[record.ID]bool {
	set := make(map[record.ID]bool, len(ids))
	for _, id := range ids {
		set[record.ID(id)] = true
	}
	return set
}

// dropper deletes selected records just before their update lands, so the
// scheduler sees them vanish mid-flight.
type dropper struct {
	*store.Store
	drop map[record.ID]bool
}

func (d *dropper) ApplyUpdate(ctx context.Context, u record.Update) (record.Record, error) {
	if d.drop[u.RecordID] {
		if err := d.Store.Delete(ctx, u.RecordID); err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return record.Record{}, err
		}
	}
	return d.Store.ApplyUpdate(ctx, u)
}
