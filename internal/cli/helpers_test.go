package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const searchEnv = "GRIDFILL_TEST_SEARCH_URL"

const testGrid = `package grid

grid: {
	columns: {
		id:        {type: "number"}
		name:      {type: "string"}
		client:    {type: "string"}
		country:   {type: "string"}
		progress:  {type: "number"}
		available: {type: "bool"}
		linkedin:  {sortable: false}
	}
	sources: {
		link: {
			env:     "GRIDFILL_TEST_SEARCH_URL"
			query:   "client"
			extract: "link"
			target:  "linkedin"
		}
	}
	concurrency: 2
	timeout:     "2s"
	summary:     "available"
}
`

const testSeed = `
- { id: 1, name: Ann, client: Acme, country: Peru, progress: 40, available: true }
- { id: 2, name: Bo, client: Globex, country: Chad, progress: 90, available: false }
- { id: 3, name: Cy, country: Peru, progress: 70, available: true }
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// writeGrid writes src as grid.cue in a fresh directory and returns it.
func writeGrid(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "grid.cue", src)
	return dir
}

// seededDB returns a database path holding the three test records.
func seededDB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	seed := writeFile(t, dir, "records.yaml", testSeed)
	db := filepath.Join(dir, "grid.db")

	_, err := execute(t, NewLoadCommand(&RootOptions{Format: "text"}), "--db", db, seed)
	require.NoError(t, err)
	return db
}

// execute runs cmd with args and returns what it wrote to stdout.
// Log output is discarded.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// trimLines strips trailing spaces that tabwriter leaves on padded cells.
func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Join(lines, "\n")
}
