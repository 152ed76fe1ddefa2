package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/gridfill/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	RunID    string
}

// RunList is the text and JSON form of the run journal index.
type RunList []store.Run

// RunDetail is one run with its outcomes in commit order.
type RunDetail struct {
	Run      store.Run       `json:"run"`
	Outcomes []store.Outcome `json:"outcomes"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List enrichment runs or show one run's journal",
		Long: `Without --run, list every enrichment run in the order it started.
With --run, show that run's header and its per-record journal in settle
order.

Example:
  gridfill runs --db ./grid.db
  gridfill runs --db ./grid.db --run 0190a6e4-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the journal of this run")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd)
	ctx := cmd.Context()

	st, err := openStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), err)
		}
		return formatter.Success(RunList(runs))
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return formatter.Fail(ExitCommandError, ErrCodeRunNotFound, err.Error(), err)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), err)
	}
	outcomes, err := st.ReadOutcomes(ctx, run.ID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), err)
	}

	return formatter.Success(RunDetail{Run: run, Outcomes: outcomes})
}

func (l RunList) writeText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSOURCE\tLIMIT\tSTATUS\tTOTAL\tOK\tFAILED\tDROPPED\tSKIPPED")
	for _, r := range l {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%d\t%d\t%d\t%d\n",
			r.ID, r.Source, r.Limit, r.Status, r.Total, r.Succeeded, r.Failed, r.Dropped, r.Skipped)
	}
	return tw.Flush()
}

func (d RunDetail) writeText(w io.Writer) error {
	run, outcomes := d.Run, d.Outcomes
	fmt.Fprintf(w, "Run %s (%s, limit %d): %s\n", run.ID, run.Source, run.Limit, run.Status)
	fmt.Fprintf(w, "  %d total: %d succeeded, %d failed, %d dropped, %d skipped\n",
		run.Total, run.Succeeded, run.Failed, run.Dropped, run.Skipped)
	if run.Digest != "" {
		fmt.Fprintf(w, "  digest %s\n", run.Digest)
	}
	for _, o := range outcomes {
		switch {
		case o.Error != "":
			fmt.Fprintf(w, "  %4d  %d %s: %s\n", o.Seq, o.RecordID, o.Outcome, o.Error)
		case len(o.Fields) > 0:
			fmt.Fprintf(w, "  %4d  %d %s %v\n", o.Seq, o.RecordID, o.Outcome, o.Fields.SortedKeys())
		default:
			fmt.Fprintf(w, "  %4d  %d %s\n", o.Seq, o.RecordID, o.Outcome)
		}
	}
	return nil
}
