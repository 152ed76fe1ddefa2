package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool     `json:"valid"`
	Files   int      `json:"files,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Sources []string `json:"sources,omitempty"`
	Line    int      `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <spec-dir>",
		Short: "Validate a grid spec",
		Long: `Load and compile the CUE grid spec in a directory.

Reports schema violations, undeclared query columns, bad templates and
durations with their CUE positions and error codes.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	result, err := LoadGridSpec(specDir)
	if err != nil {
		code, message := loadErrorParts(err)
		var line int
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			line = loadErr.Pos.Line()
		}
		return outputValidationError(formatter, code, message, line)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, specDir)

	spec := result.Spec
	return formatter.Success(ValidationResult{
		Valid:   true,
		Files:   result.FileCount,
		Columns: spec.ColumnNames(),
		Sources: spec.SourceNames(),
	})
}

func (r ValidationResult) writeText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "✓ Grid spec valid (%d columns, %d sources)\n", len(r.Columns), len(r.Sources))
	return err
}

// outputValidationError reports one validation error. Missing or unreadable
// directories are command errors (exit 2); a spec that loads but does not
// compile is a validation failure (exit 1).
func outputValidationError(formatter *OutputFormatter, code, message string, line int) error {
	exitCode := ExitFailure
	switch code {
	case ErrCodeNotFound, ErrCodeScanError, ErrCodeNoFiles:
		exitCode = ExitCommandError
	}

	if formatter.Format == "json" {
		_ = formatter.Error(code, message, ValidationResult{Valid: false, Line: line})
		return NewExitError(exitCode, fmt.Sprintf("%s: %s", code, message))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	if line > 0 {
		fmt.Fprintf(formatter.Writer, "line %d\n", line)
	}
	fmt.Fprintf(formatter.Writer, "  %s: %s\n", code, message)
	return NewExitError(exitCode, fmt.Sprintf("%s: %s", code, message))
}
