// Command gridfill owns the records behind a data grid: it loads them into
// SQLite, fills them from HTTP lookup services with bounded concurrency, and
// prints sorted views.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/gridfill/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()

	// Commands report their own ExitErrors; anything else (flag parsing,
	// an invalid --format) has not been printed yet.
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
