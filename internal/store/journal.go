package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/gridfill/internal/record"
)

// Run status values.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunCancelled = "cancelled"
)

// Outcome values recorded for each settled record.
const (
	OutcomeApplied = "applied"
	OutcomeFailed  = "failed"
	OutcomeDropped = "dropped"
)

// Run is the journal header for one scheduling run.
type Run struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Limit     int    `json:"limit"`
	Total     int    `json:"total"`
	Status    string `json:"status"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Dropped   int    `json:"dropped"`
	Skipped   int    `json:"skipped"`
	Digest    string `json:"digest,omitempty"`
}

// Outcome is one journal line: how a record settled within a run.
type Outcome struct {
	RunID    string        `json:"run_id"`
	Seq      int64         `json:"seq"`
	RecordID record.ID     `json:"record_id"`
	Outcome  string        `json:"outcome"`
	Fields   record.Fields `json:"fields,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// BeginRun inserts a run header with status "running".
// Runs are listed in the order they were begun.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, source, lim, total, status, ordinal)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(ordinal), 0) + 1 FROM runs))
	`, run.ID, run.Source, run.Limit, run.Total, RunRunning)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// AppendOutcome writes one journal line. Seq must be unique within the run.
func (s *Store) AppendOutcome(ctx context.Context, o Outcome) error {
	fieldsJSON, err := marshalFields(o.Fields)
	if err != nil {
		return fmt.Errorf("append outcome: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO outcomes (run_id, seq, record_id, outcome, fields, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, o.RunID, o.Seq, int64(o.RecordID), o.Outcome, fieldsJSON, o.Error)
	if err != nil {
		return fmt.Errorf("append outcome: %w", err)
	}
	return nil
}

// FinishRun stores the final status, counts and snapshot digest of a run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, succeeded = ?, failed = ?, dropped = ?, skipped = ?, digest = ?
		WHERE id = ?
	`, run.Status, run.Succeeded, run.Failed, run.Dropped, run.Skipped, run.Digest, run.ID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", run.ID, ErrRunNotFound)
	}
	return nil
}

// ReadRun returns one run header. Returns ErrRunNotFound if absent.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source, lim, total, status, succeeded, failed, dropped, skipped, digest
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	return run, err
}

// ListRuns returns all runs, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, lim, total, status, succeeded, failed, dropped, skipped, digest
		FROM runs
		ORDER BY ordinal ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadOutcomes returns a run's journal ordered by seq.
func (s *Store) ReadOutcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, record_id, outcome, fields, error
		FROM outcomes
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []Outcome{}
	for rows.Next() {
		var (
			o          Outcome
			recordID   int64
			fieldsJSON string
		)
		if err := rows.Scan(&o.RunID, &o.Seq, &recordID, &o.Outcome, &fieldsJSON, &o.Error); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.RecordID = record.ID(recordID)
		if o.Fields, err = unmarshalFields(fieldsJSON); err != nil {
			return nil, fmt.Errorf("outcome %s/%d: %w", o.RunID, o.Seq, err)
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	err := row.Scan(&run.ID, &run.Source, &run.Limit, &run.Total, &run.Status,
		&run.Succeeded, &run.Failed, &run.Dropped, &run.Skipped, &run.Digest)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}
