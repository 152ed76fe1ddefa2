package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/roach88/gridfill/internal/store"
)

// DefaultSummaryField is the bool column counted when neither --field nor a
// spec summary is given.
const DefaultSummaryField = "available"

// SummaryOptions holds flags for the summary command.
type SummaryOptions struct {
	*RootOptions
	Database string
	SpecDir  string
	Field    string
	Distinct string
	Lang     string
}

// SummaryView is the JSON form of the summary row.
type SummaryView struct {
	Field      string   `json:"field"`
	Total      int      `json:"total"`
	YesCount   int      `json:"yes_count"`
	YesPercent int      `json:"yes_percent"`
	Distinct   []string `json:"distinct,omitempty"`

	distinctField string
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SummaryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the grid summary row",
		Long: `Count the stored records and how many have a true value in a bool
column. The column is --field, else the grid spec's summary column, else
"available". Records where the column is absent or not a bool count as no.

--distinct lists the distinct string values of another column, collated
for --lang, as used to fill an editor's option list.

Example:
  gridfill summary --db ./grid.db
  gridfill summary --db ./grid.db --spec ./grid --distinct country`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.SpecDir, "spec", "", "grid spec directory naming the summary column")
	cmd.Flags().StringVar(&opts.Field, "field", "", "bool column to count")
	cmd.Flags().StringVar(&opts.Distinct, "distinct", "", "list the distinct values of this column")
	cmd.Flags().StringVar(&opts.Lang, "lang", "und", "BCP 47 language for collating distinct values")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSummary(opts *SummaryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd)
	ctx := cmd.Context()

	field := opts.Field
	if field == "" && opts.SpecDir != "" {
		loaded, err := LoadGridSpec(opts.SpecDir)
		if err != nil {
			code, message := loadErrorParts(err)
			return formatter.Fail(ExitCommandError, code, message, err)
		}
		field = loaded.Spec.Summary
	}
	if field == "" {
		field = DefaultSummaryField
	}

	tag, err := language.Parse(opts.Lang)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("invalid --lang %q: %v", opts.Lang, err), err)
	}

	st, err := openStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	sum, err := st.Summary(ctx, field)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), err)
	}
	view := newSummaryView(field, sum)

	if opts.Distinct != "" {
		view.distinctField = opts.Distinct
		view.Distinct, err = st.DistinctValues(ctx, opts.Distinct, tag)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), err)
		}
	}

	return formatter.Success(view)
}

func (v SummaryView) writeText(w io.Writer) error {
	fmt.Fprintf(w, "Total: %d\n", v.Total)
	fmt.Fprintf(w, "%s: %d (%d%%)\n", v.Field, v.YesCount, v.YesPercent)
	if v.distinctField != "" {
		fmt.Fprintf(w, "%s values (%d):\n", v.distinctField, len(v.Distinct))
		for _, d := range v.Distinct {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}
	return nil
}

func newSummaryView(field string, sum store.Summary) SummaryView {
	return SummaryView{
		Field:      field,
		Total:      sum.Total,
		YesCount:   sum.YesCount,
		YesPercent: sum.YesPercent(),
	}
}
