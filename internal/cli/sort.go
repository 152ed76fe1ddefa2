package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/roach88/gridfill/internal/order"
	"github.com/roach88/gridfill/internal/record"
)

// SortOptions holds flags for the sort command.
type SortOptions struct {
	*RootOptions
	Database string
	SpecDir  string
	By       []string
	Lang     string
}

// SortView is an ordered view. Text output renders it as a table.
type SortView struct {
	Spec    string          `json:"spec"`
	Order   []record.ID     `json:"order"`
	Records []record.Record `json:"records"`

	columns []string
}

// NewSortCommand creates the sort command.
func NewSortCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SortOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Print the records ordered by a sort spec",
		Long: `Print every stored record ordered by one or more sort keys. Each key is
"field" or "field:asc|desc"; keys may be repeated or comma-separated, and
earlier keys take precedence. The stored insertion order is never changed.

With --spec, only the grid's sortable columns (and id) are accepted and
each column compares by its declared type. Without it, any field present in
the store may be used.

Example:
  gridfill sort --db ./grid.db --by country --by progress:desc
  gridfill sort --db ./grid.db --spec ./grid --by name:asc --lang sv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.SpecDir, "spec", "", "grid spec directory for column types")
	cmd.Flags().StringSliceVar(&opts.By, "by", nil, "sort key field[:asc|desc] (repeatable)")
	cmd.Flags().StringVar(&opts.Lang, "lang", "und", "BCP 47 language for string collation")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSort(opts *SortOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd)

	spec, err := order.ParseSpec(opts.By...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidKey, err.Error(), err)
	}
	tag, err := language.Parse(opts.Lang)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("invalid --lang %q: %v", opts.Lang, err), err)
	}

	var (
		schema  order.Schema
		columns []string
	)
	if opts.SpecDir != "" {
		loaded, err := LoadGridSpec(opts.SpecDir)
		if err != nil {
			code, message := loadErrorParts(err)
			return formatter.Fail(ExitCommandError, code, message, err)
		}
		schema = loaded.Spec.Schema()
		columns = loaded.Spec.ColumnNames()
	}

	st, err := openStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	records, err := st.Snapshot(cmd.Context())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), err)
	}
	if schema == nil {
		columns = fieldNames(records)
		schema = inferSchema(columns)
	}

	sorted, err := order.New(schema, order.WithLanguage(tag)).Sort(records, spec)
	if err != nil {
		if errors.Is(err, order.ErrUnsupportedSortKey) {
			return formatter.Fail(ExitCommandError, ErrCodeUnsupportedKey, err.Error(), err)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), err)
	}
	logger.Debug("records sorted", "spec", spec.String(), "records", len(sorted))

	view := SortView{Spec: spec.String(), Order: make([]record.ID, 0, len(sorted)), Records: sorted, columns: columns}
	for _, rec := range sorted {
		view.Order = append(view.Order, rec.ID)
	}
	return formatter.Success(view)
}

// fieldNames returns every field present in records, in UTF-16 order.
func fieldNames(records []record.Record) []string {
	seen := record.Fields{}
	for _, rec := range records {
		for k, v := range rec.Fields {
			seen[k] = v
		}
	}
	return seen.SortedKeys()
}

// inferSchema treats every present field as a sortable column compared by
// its runtime kind.
func inferSchema(fields []string) order.Schema {
	schema := make(order.Schema, len(fields))
	for _, f := range fields {
		schema[f] = order.TypeAny
	}
	return schema
}

// writeText renders the sorted records as a table, id first.
func (v SortView) writeText(w io.Writer) error {
	columns := slices.DeleteFunc(slices.Clone(v.columns), func(c string) bool { return c == record.IDField })

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, record.IDField)
	for _, c := range columns {
		fmt.Fprintf(tw, "\t%s", c)
	}
	fmt.Fprintln(tw)
	for _, rec := range v.Records {
		fmt.Fprint(tw, rec.ID)
		for _, c := range columns {
			fmt.Fprintf(tw, "\t%s", formatCell(rec.Fields[c]))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func formatCell(v record.Value) string {
	switch v := v.(type) {
	case nil, record.Null:
		return ""
	case record.String:
		return string(v)
	case record.Number:
		return v.String()
	case record.Bool:
		if v {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprint(v)
	}
}
