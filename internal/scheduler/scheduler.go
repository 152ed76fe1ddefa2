package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/roach88/gridfill/internal/record"
	"github.com/roach88/gridfill/internal/store"
)

// DefaultLimit is the number of tasks allowed in flight when WithLimit is
// not given.
const DefaultLimit = 4

// Applier is the record owner that merges updates. *store.Store implements
// it. ApplyUpdate must return an error matching store.ErrRecordNotFound when
// the target id is absent.
type Applier interface {
	ApplyUpdate(ctx context.Context, u record.Update) (record.Record, error)
}

// Snapshotter is implemented by appliers that can list their records. When
// available, the report carries a digest of the final snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]record.Record, error)
}

// Journal records runs and their per-record outcomes. *store.Store
// implements it.
type Journal interface {
	BeginRun(ctx context.Context, run store.Run) error
	AppendOutcome(ctx context.Context, o store.Outcome) error
	FinishRun(ctx context.Context, run store.Run) error
}

// EventKind distinguishes observer events.
type EventKind int

const (
	EventLaunched EventKind = iota + 1
	EventSettled
)

func (k EventKind) String() string {
	switch k {
	case EventLaunched:
		return "launched"
	case EventSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Event is delivered to the observer on the dispatch goroutine.
// Outstanding is the number of held slots after the event.
type Event struct {
	Kind        EventKind
	RecordID    record.ID
	Outstanding int
	Outcome     string // set for EventSettled
	Err         error
}

// Scheduler runs enrichment tasks over a worklist with bounded concurrency.
// A Scheduler keeps no state between runs; a second Run re-executes every
// record.
type Scheduler struct {
	applier  Applier
	limit    int
	logger   *slog.Logger
	journal  Journal
	observer func(Event)
	runIDs   RunIDGenerator
	clock    SeqClock
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLimit sets the maximum number of tasks in flight.
//
// Default: 4 (DefaultLimit). Values below 1 make Run return ErrInvalidLimit.
func WithLimit(n int) Option {
	return func(s *Scheduler) {
		s.limit = n
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithJournal records each run and every settled record.
func WithJournal(j Journal) Option {
	return func(s *Scheduler) {
		s.journal = j
	}
}

// WithObserver registers fn to receive launch and settle events.
// fn runs on the dispatch goroutine and must not block.
func WithObserver(fn func(Event)) Option {
	return func(s *Scheduler) {
		s.observer = fn
	}
}

// WithRunIDGenerator sets the run id source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(s *Scheduler) {
		s.runIDs = g
	}
}

// WithClock sets the sequence clock shared by all runs. By default each run
// starts a fresh Clock, so journal seqs start at 1.
func WithClock(c SeqClock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// New creates a Scheduler that applies successful results through a.
func New(a Applier, opts ...Option) *Scheduler {
	s := &Scheduler{
		applier: a,
		limit:   DefaultLimit,
		runIDs:  UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Limit returns the configured concurrency limit.
func (s *Scheduler) Limit() int {
	return s.limit
}

// run holds the state of one Run call. Only the dispatch goroutine touches it.
type run struct {
	id      string
	source  string
	total   int
	clock   SeqClock
	report  *Report
	logger  *slog.Logger
	journal Journal
}

// Run attempts every record exactly once with at most Limit tasks in flight
// and returns a report of the outcome.
//
// Results are applied as they settle. Task failures never abort the run; the
// only errors Run returns are ErrInvalidLimit, a journal write failure, or
// ctx.Err() after a cancelled run has drained. In the cancelled case the
// partial report is returned alongside the error.
func (s *Scheduler) Run(ctx context.Context, records []record.Record, task Task) (*Report, error) {
	if s.limit < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, s.limit)
	}

	r := &run{
		id:      s.runIDs.Generate(),
		source:  taskName(task),
		total:   len(records),
		clock:   s.clock,
		journal: s.journal,
	}
	if r.clock == nil {
		r.clock = NewClock()
	}
	r.report = newReport(r.id, len(records))
	r.logger = s.logger.With("run_id", r.id, "source", r.source)

	if r.journal != nil {
		err := r.journal.BeginRun(ctx, store.Run{
			ID:     r.id,
			Source: r.source,
			Limit:  s.limit,
			Total:  len(records),
		})
		if err != nil {
			return nil, fmt.Errorf("begin run: %w", err)
		}
	}

	r.logger.Info("run starting", "records", len(records), "limit", s.limit)

	// Writes after a cancellation still need to land: drained results are
	// applied and journaled like any other.
	writeCtx := context.WithoutCancel(ctx)

	sem := newSlots(s.limit)
	// Buffered to the limit so a settling task never blocks on send.
	results := make(chan record.Result, s.limit)
	next := 0
	cancelled := false

	for {
		for !cancelled && next < len(records) {
			if ctx.Err() != nil {
				cancelled = true
				break
			}
			if !sem.tryAcquire() {
				break
			}
			rec := records[next]
			next++

			r.report.Launched = append(r.report.Launched, rec.ID)
			if n := sem.outstanding(); n > r.report.MaxOutstanding {
				r.report.MaxOutstanding = n
			}
			r.logger.Debug("task launched", "record_id", rec.ID, "outstanding", sem.outstanding())
			s.observe(Event{Kind: EventLaunched, RecordID: rec.ID, Outstanding: sem.outstanding()})

			go execute(ctx, task, rec.Clone(), results)
		}

		if sem.outstanding() == 0 {
			break
		}

		res := <-results
		sem.release()

		outcome, err := s.settle(writeCtx, r, res)
		if err != nil {
			return r.report, err
		}
		s.observe(Event{
			Kind:        EventSettled,
			RecordID:    res.RecordID,
			Outstanding: sem.outstanding(),
			Outcome:     outcome,
			Err:         res.Err,
		})

		if !cancelled && next < len(records) && ctx.Err() != nil {
			cancelled = true
		}
	}

	for _, rec := range records[next:] {
		r.report.Skipped = append(r.report.Skipped, rec.ID)
	}

	if snap, ok := s.applier.(Snapshotter); ok {
		final, err := snap.Snapshot(writeCtx)
		if err != nil {
			return r.report, fmt.Errorf("snapshot: %w", err)
		}
		digest, err := record.Digest(final)
		if err != nil {
			return r.report, fmt.Errorf("digest: %w", err)
		}
		r.report.Digest = digest
	}

	status := store.RunCompleted
	if cancelled {
		status = store.RunCancelled
	}
	if r.journal != nil {
		err := r.journal.FinishRun(writeCtx, store.Run{
			ID:        r.id,
			Source:    r.source,
			Limit:     s.limit,
			Total:     r.total,
			Status:    status,
			Succeeded: len(r.report.Succeeded),
			Failed:    len(r.report.Failed),
			Dropped:   len(r.report.Dropped),
			Skipped:   len(r.report.Skipped),
			Digest:    r.report.Digest,
		})
		if err != nil {
			return r.report, fmt.Errorf("finish run: %w", err)
		}
	}

	r.logger.Info("run finished",
		"status", status,
		"succeeded", len(r.report.Succeeded),
		"failed", len(r.report.Failed),
		"dropped", len(r.report.Dropped),
		"skipped", len(r.report.Skipped),
		"max_outstanding", r.report.MaxOutstanding,
	)

	if cancelled {
		return r.report, ctx.Err()
	}
	return r.report, nil
}

// settle applies or records one result and journals it.
// CRITICAL: Called only from the Run goroutine - single-writer guarantee.
func (s *Scheduler) settle(ctx context.Context, r *run, res record.Result) (string, error) {
	line := store.Outcome{RunID: r.id, RecordID: res.RecordID}

	switch {
	case !res.OK():
		taskErr := &TaskError{RecordID: res.RecordID, Cause: res.Err}
		r.report.Failed = append(r.report.Failed, Failure{RecordID: res.RecordID, Err: taskErr})
		r.logger.Warn("task failed", "record_id", res.RecordID, "error", res.Err)
		line.Outcome = store.OutcomeFailed
		line.Error = res.Err.Error()

	default:
		_, err := s.applier.ApplyUpdate(ctx, res.Update)
		switch {
		case err == nil:
			r.report.Succeeded = append(r.report.Succeeded, res.RecordID)
			r.logger.Debug("update applied", "record_id", res.RecordID, "fields", len(res.Update.Fields))
			line.Outcome = store.OutcomeApplied
			line.Fields = res.Update.Fields

		case errors.Is(err, store.ErrRecordNotFound):
			r.report.Dropped = append(r.report.Dropped, res.RecordID)
			r.logger.Warn("update dropped: record not found", "record_id", res.RecordID)
			line.Outcome = store.OutcomeDropped
			line.Fields = res.Update.Fields

		default:
			applyErr := &TaskError{RecordID: res.RecordID, Cause: fmt.Errorf("apply update: %w", err)}
			r.report.Failed = append(r.report.Failed, Failure{RecordID: res.RecordID, Err: applyErr})
			r.logger.Warn("apply failed", "record_id", res.RecordID, "error", err)
			line.Outcome = store.OutcomeFailed
			line.Error = applyErr.Cause.Error()
		}
	}

	if r.journal != nil {
		line.Seq = r.clock.Next()
		if err := r.journal.AppendOutcome(ctx, line); err != nil {
			return line.Outcome, fmt.Errorf("journal record %d: %w", res.RecordID, err)
		}
	}
	return line.Outcome, nil
}

func (s *Scheduler) observe(ev Event) {
	if s.observer != nil {
		s.observer(ev)
	}
}

// execute runs one task and always sends exactly one result. A panic is
// converted to a failed result.
func execute(ctx context.Context, task Task, rec record.Record, results chan<- record.Result) {
	var res record.Result
	defer func() {
		if v := recover(); v != nil {
			res = record.Failed(rec.ID, &PanicError{Value: v, Stack: debug.Stack()})
		}
		results <- res
	}()

	res = task.Enrich(ctx, rec)
	if res.OK() && res.Update.RecordID != rec.ID {
		res = record.Failed(rec.ID, fmt.Errorf("update targets record %d", res.Update.RecordID))
	}
	if !res.OK() {
		res.RecordID = rec.ID
	}
}
