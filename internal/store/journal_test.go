package store

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/gridfill/internal/record"
)

func TestJournal_RunLifecycle(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := Run{ID: "run-1", Source: "link", Limit: 2, Total: 3}
	if err := s.BeginRun(ctx, run); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}

	got, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if got.Status != RunRunning {
		t.Errorf("Status = %q, want %q", got.Status, RunRunning)
	}

	outcomes := []Outcome{
		{RunID: "run-1", Seq: 2, RecordID: 1, Outcome: OutcomeApplied,
			Fields: record.MustFields(map[string]any{"linkedin": "L"})},
		{RunID: "run-1", Seq: 3, RecordID: 3, Outcome: OutcomeFailed, Error: "status 500"},
		{RunID: "run-1", Seq: 1, RecordID: 2, Outcome: OutcomeDropped},
	}
	for _, o := range outcomes {
		if err := s.AppendOutcome(ctx, o); err != nil {
			t.Fatalf("AppendOutcome(seq=%d) failed: %v", o.Seq, err)
		}
	}

	run.Status = RunCompleted
	run.Succeeded, run.Failed, run.Dropped = 1, 1, 1
	run.Digest = "abc"
	if err := s.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}

	got, err = s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if got != run {
		t.Errorf("ReadRun() = %+v, want %+v", got, run)
	}

	read, err := s.ReadOutcomes(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadOutcomes() failed: %v", err)
	}
	if len(read) != 3 {
		t.Fatalf("ReadOutcomes() returned %d, want 3", len(read))
	}
	for i, o := range read {
		if o.Seq != int64(i+1) {
			t.Errorf("outcome[%d].Seq = %d, want %d", i, o.Seq, i+1)
		}
	}
	if read[1].Fields["linkedin"] != record.String("L") {
		t.Errorf("applied fields = %v, want linkedin=L", read[1].Fields)
	}
	if read[2].Error != "status 500" {
		t.Errorf("failed error = %q, want %q", read[2].Error, "status 500")
	}
}

func TestJournal_ListRunsInBeginOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Ids deliberately sort opposite to begin order.
	for _, id := range []string{"zz", "mm", "aa"} {
		if err := s.BeginRun(ctx, Run{ID: id, Source: "link", Limit: 1}); err != nil {
			t.Fatalf("BeginRun(%s) failed: %v", id, err)
		}
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	want := []string{"zz", "mm", "aa"}
	if len(runs) != len(want) {
		t.Fatalf("ListRuns() returned %d, want %d", len(runs), len(want))
	}
	for i, r := range runs {
		if r.ID != want[i] {
			t.Errorf("runs[%d].ID = %q, want %q", i, r.ID, want[i])
		}
	}
}

func TestJournal_RunNotFound(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.ReadRun(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("ReadRun() error = %v, want ErrRunNotFound", err)
	}
	if err := s.FinishRun(ctx, Run{ID: "missing", Status: RunCompleted}); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("FinishRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestJournal_OutcomeRequiresRun(t *testing.T) {
	s := createTestStore(t)

	err := s.AppendOutcome(context.Background(), Outcome{
		RunID: "nope", Seq: 1, RecordID: 1, Outcome: OutcomeApplied,
	})
	if err == nil {
		t.Fatal("AppendOutcome() for unknown run succeeded, want foreign key error")
	}
}
