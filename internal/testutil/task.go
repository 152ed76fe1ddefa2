package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/gridfill/internal/record"
)

// ErrStubFailure is the default cause for records listed in StubTask.Fail.
var ErrStubFailure = errors.New("stub failure")

// StubTask is a deterministic enrichment task for tests. It satisfies
// scheduler.Task without importing it.
//
// By default every record succeeds with {"enriched": "<id>"}. Records in
// Fail return a failed result; records in Panic make the task panic.
type StubTask struct {
	// Fields builds the update for a record. Default: {"enriched": "<id>"}.
	Fields func(rec record.Record) record.Fields

	// Fail maps record ids to the error their task returns.
	// A nil error means ErrStubFailure.
	Fail map[record.ID]error

	// Panic lists record ids whose task panics.
	Panic map[record.ID]bool

	// Delay returns how long a record's task waits before settling.
	Delay func(id record.ID) time.Duration

	// Gate, when set, blocks every task until it is closed or ctx is done.
	Gate <-chan struct{}

	// Probe, when set, observes how many tasks run at once.
	Probe *ConcurrencyProbe

	// Started, when set, receives each record id as its task begins.
	// It must be buffered or drained by the test.
	Started chan<- record.ID

	mu    sync.Mutex
	calls []record.ID
}

// TaskName identifies the stub in run journals.
func (t *StubTask) TaskName() string {
	return "stub"
}

// Enrich implements scheduler.Task.
func (t *StubTask) Enrich(ctx context.Context, rec record.Record) record.Result {
	t.mu.Lock()
	t.calls = append(t.calls, rec.ID)
	t.mu.Unlock()

	if t.Probe != nil {
		exit := t.Probe.Enter()
		defer exit()
	}
	if t.Started != nil {
		t.Started <- rec.ID
	}

	if t.Gate != nil {
		select {
		case <-t.Gate:
		case <-ctx.Done():
			return record.Failed(rec.ID, ctx.Err())
		}
	}
	if t.Delay != nil {
		if d := t.Delay(rec.ID); d > 0 {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return record.Failed(rec.ID, ctx.Err())
			}
		}
	}

	if t.Panic[rec.ID] {
		panic(fmt.Sprintf("stub panic for record %d", rec.ID))
	}
	if err, ok := t.Fail[rec.ID]; ok {
		if err == nil {
			err = ErrStubFailure
		}
		return record.Failed(rec.ID, err)
	}

	fields := record.Fields{"enriched": record.String(rec.ID.String())}
	if t.Fields != nil {
		fields = t.Fields(rec)
	}
	return record.Succeeded(record.NewUpdate(rec.ID, fields))
}

// Calls returns the record ids the task was invoked with, in call order.
func (t *StubTask) Calls() []record.ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]record.ID, len(t.calls))
	copy(out, t.calls)
	return out
}
