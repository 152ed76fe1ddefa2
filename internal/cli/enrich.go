package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/gridfill/internal/enrich"
	"github.com/roach88/gridfill/internal/record"
	"github.com/roach88/gridfill/internal/scheduler"
	"github.com/roach88/gridfill/internal/store"
)

// EnrichOptions holds flags for the enrich command.
type EnrichOptions struct {
	*RootOptions
	Database string
	SpecDir  string
	Source   string
	Limit    int
	Timeout  time.Duration
	RecordID int64

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs scheduler.RunIDGenerator

	// LookupEnv resolves source env names. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// RunReport is the printable form of a scheduler report.
type RunReport struct {
	RunID          string          `json:"run_id"`
	Source         string          `json:"source"`
	Limit          int             `json:"limit"`
	Status         string          `json:"status"`
	Succeeded      []record.ID     `json:"succeeded"`
	Failed         []FailureReport `json:"failed"`
	Dropped        []record.ID     `json:"dropped"`
	Skipped        []record.ID     `json:"skipped"`
	MaxOutstanding int             `json:"max_outstanding"`
	Digest         string          `json:"digest,omitempty"`
}

// FailureReport is one failed record in a RunReport.
type FailureReport struct {
	RecordID record.ID `json:"record_id"`
	Error    string    `json:"error"`
}

// NewEnrichCommand creates the enrich command.
func NewEnrichCommand(rootOpts *RootOptions) *cobra.Command {
	return newEnrichCommand(&EnrichOptions{RootOptions: rootOpts})
}

func newEnrichCommand(opts *EnrichOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Fill records from a grid spec source",
		Long: `Run one source of the grid spec over the stored records with at most
--limit lookups in flight. Each successful lookup is merged into its record
as soon as it settles; failures leave the record untouched and are recorded
in the run journal.

Ctrl-C stops launching new lookups, waits for those in flight, and records
the rest as skipped.

Example:
  gridfill enrich --db ./grid.db --spec ./grid --source link
  gridfill enrich --db ./grid.db --spec ./grid --source geo --limit 8 --id 42`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnrich(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.SpecDir, "spec", "", "grid spec directory (required)")
	cmd.Flags().StringVar(&opts.Source, "source", "", "source name from the grid spec (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum lookups in flight (default: spec concurrency)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "per-record deadline (default: spec timeout)")
	cmd.Flags().Int64Var(&opts.RecordID, "id", 0, "enrich only this record")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("spec")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func runEnrich(opts *EnrichOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd)

	loaded, err := LoadGridSpec(opts.SpecDir)
	if err != nil {
		code, message := loadErrorParts(err)
		return formatter.Fail(ExitCommandError, code, message, err)
	}
	spec := loaded.Spec

	srcSpec, ok := spec.Source(opts.Source)
	if !ok {
		return formatter.Fail(ExitCommandError, ErrCodeUnknownSource,
			fmt.Sprintf("unknown source %q (have %v)", opts.Source, spec.SourceNames()), nil)
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	src, err := srcSpec.Enricher(lookup, enrich.NewClient(enrich.WithClientLogger(logger)))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSourceURL, err.Error(), err)
	}

	limit := spec.Concurrency
	if opts.Limit != 0 {
		limit = opts.Limit
	}
	timeout := spec.Timeout
	if opts.Timeout != 0 {
		timeout = opts.Timeout
	}

	st, err := openStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, draining in-flight lookups", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var only *record.ID
	if cmd.Flags().Changed("id") {
		id := record.ID(opts.RecordID)
		only = &id
	}
	records, err := selectRecords(ctx, st, only)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return formatter.Fail(ExitCommandError, ErrCodeRecordNotFound, err.Error(), err)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), err)
	}

	unsubscribe := st.Subscribe(func(c store.Change) {
		logger.Debug("record changed",
			"record_id", c.Record.ID,
			"change", c.Kind.String(),
			"fields", c.Update.Fields.SortedKeys(),
			"version", c.Version,
		)
	})
	defer unsubscribe()

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = scheduler.UUIDv7Generator{}
	}
	sched := scheduler.New(st,
		scheduler.WithLimit(limit),
		scheduler.WithLogger(logger),
		scheduler.WithJournal(st),
		scheduler.WithRunIDGenerator(runIDs),
	)

	report, err := sched.Run(ctx, records, enrich.WithTimeout(src, timeout))
	switch {
	case errors.Is(err, scheduler.ErrInvalidLimit):
		return formatter.Fail(ExitCommandError, ErrCodeInvalidLimit, err.Error(), err)
	case err != nil && !errors.Is(err, context.Canceled):
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), err)
	}

	out := newRunReport(report, src.TaskName(), limit, err != nil)
	if outErr := formatter.Success(out); outErr != nil {
		return outErr
	}
	if err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("%s: run cancelled", ErrCodeCancelled), err)
	}
	return nil
}

// selectRecords returns the whole snapshot, or just record *id when id is set.
// Zero is a valid record id, so "unset" is nil rather than 0.
func selectRecords(ctx context.Context, st *store.Store, id *record.ID) ([]record.Record, error) {
	if id != nil {
		rec, err := st.Get(ctx, *id)
		if err != nil {
			return nil, err
		}
		return []record.Record{rec}, nil
	}
	return st.Snapshot(ctx)
}

func newRunReport(r *scheduler.Report, source string, limit int, cancelled bool) RunReport {
	status := store.RunCompleted
	if cancelled {
		status = store.RunCancelled
	}
	out := RunReport{
		RunID:          r.RunID,
		Source:         source,
		Limit:          limit,
		Status:         status,
		Succeeded:      nonNil(r.Succeeded),
		Failed:         make([]FailureReport, 0, len(r.Failed)),
		Dropped:        nonNil(r.Dropped),
		Skipped:        nonNil(r.Skipped),
		MaxOutstanding: r.MaxOutstanding,
		Digest:         r.Digest,
	}
	for _, f := range r.Failed {
		msg := f.Err.Error()
		var te *scheduler.TaskError
		if errors.As(f.Err, &te) {
			msg = te.Cause.Error()
		}
		out.Failed = append(out.Failed, FailureReport{RecordID: f.RecordID, Error: msg})
	}
	return out
}

func (r RunReport) writeText(w io.Writer) error {
	fmt.Fprintf(w, "Run %s (%s, limit %d): %s\n", r.RunID, r.Source, r.Limit, r.Status)
	fmt.Fprintf(w, "  %d succeeded, %d failed, %d dropped, %d skipped\n",
		len(r.Succeeded), len(r.Failed), len(r.Dropped), len(r.Skipped))
	for _, f := range r.Failed {
		fmt.Fprintf(w, "  ✗ %d: %s\n", f.RecordID, f.Error)
	}
	for _, id := range r.Dropped {
		fmt.Fprintf(w, "  - %d: record removed before its update landed\n", id)
	}
	return nil
}

func nonNil(ids []record.ID) []record.ID {
	if ids == nil {
		return []record.ID{}
	}
	return ids
}
