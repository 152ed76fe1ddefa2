package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridfill/internal/record"
	"github.com/roach88/gridfill/internal/scheduler"
	"github.com/roach88/gridfill/internal/store"
)

const acmeLink = "https://linkedin.example/company/acme"

// startSearch serves a link for the "Acme" query and 404 for anything
// else, and points the test grid's source at it.
func startSearch(t *testing.T) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "Acme" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":[{"link":"`+acmeLink+`"}]}`)
	}))
	t.Cleanup(srv.Close)
	t.Setenv(searchEnv, srv.URL+"/search?q=")
}

func enrichCommand(format, runID string) *cobra.Command {
	return newEnrichCommand(&EnrichOptions{
		RootOptions: &RootOptions{Format: format},
		RunIDs:      scheduler.NewFixedGenerator(runID),
	})
}

func decodeRunReport(t *testing.T, out string) RunReport {
	t.Helper()
	var resp struct {
		Status string    `json:"status"`
		Data   RunReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestEnrich_PartialFailure(t *testing.T) {
	startSearch(t)
	db := seededDB(t)
	spec := writeGrid(t, testGrid)

	out, err := execute(t, enrichCommand("json", "run-a"), "--db", db, "--spec", spec, "--source", "link")
	require.NoError(t, err, "task failures do not fail the command")

	report := decodeRunReport(t, out)
	assert.Equal(t, "run-a", report.RunID)
	assert.Equal(t, "link", report.Source)
	assert.Equal(t, 2, report.Limit)
	assert.Equal(t, store.RunCompleted, report.Status)
	assert.Equal(t, []record.ID{1}, report.Succeeded)
	assert.Empty(t, report.Dropped)
	assert.Empty(t, report.Skipped)
	assert.LessOrEqual(t, report.MaxOutstanding, 2)
	assert.NotEmpty(t, report.Digest)

	failed := make([]record.ID, 0, len(report.Failed))
	for _, f := range report.Failed {
		failed = append(failed, f.RecordID)
		assert.NotEmpty(t, f.Error)
	}
	slices.Sort(failed)
	assert.Equal(t, []record.ID{2, 3}, failed)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	one, err := st.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, record.String(acmeLink), one.Fields["linkedin"])
	assert.Equal(t, record.String("Ann"), one.Fields["name"])

	two, err := st.Get(ctx, 2)
	require.NoError(t, err)
	_, has := two.Fields["linkedin"]
	assert.False(t, has)
}

func TestEnrich_TextReport(t *testing.T) {
	startSearch(t)
	db := seededDB(t)
	spec := writeGrid(t, testGrid)

	out, err := execute(t, enrichCommand("text", "run-t"),
		"--db", db, "--spec", spec, "--source", "link", "--limit", "1")
	require.NoError(t, err)

	assert.Contains(t, out, "Run run-t (link, limit 1): completed\n")
	assert.Contains(t, out, "  1 succeeded, 2 failed, 0 dropped, 0 skipped\n")
	assert.Contains(t, out, "  ✗ 2: link: GET ")
	assert.Contains(t, out, "status 404")
	assert.Contains(t, out, "  ✗ 3: ")
}

func TestEnrich_SingleRecord(t *testing.T) {
	startSearch(t)
	db := seededDB(t)
	spec := writeGrid(t, testGrid)

	out, err := execute(t, enrichCommand("json", "run-one"),
		"--db", db, "--spec", spec, "--source", "link", "--id", "1")
	require.NoError(t, err)

	report := decodeRunReport(t, out)
	assert.Equal(t, []record.ID{1}, report.Succeeded)
	assert.Empty(t, report.Failed)
}

func TestEnrich_RecordIDZero(t *testing.T) {
	startSearch(t)
	dir := t.TempDir()
	seed := writeFile(t, dir, "records.yaml", `
- { id: 0, name: Zed, client: Initech }
- { id: 1, name: Ann, client: Acme }
`)
	db := filepath.Join(dir, "grid.db")
	_, err := execute(t, NewLoadCommand(&RootOptions{Format: "text"}), "--db", db, seed)
	require.NoError(t, err)
	spec := writeGrid(t, testGrid)

	out, err := execute(t, enrichCommand("json", "run-zero"),
		"--db", db, "--spec", spec, "--source", "link", "--id", "0")
	require.NoError(t, err)

	report := decodeRunReport(t, out)
	assert.Empty(t, report.Succeeded, "record 1 must not be enriched")
	require.Len(t, report.Failed, 1)
	assert.Equal(t, record.ID(0), report.Failed[0].RecordID)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	one, err := st.Get(context.Background(), 1)
	require.NoError(t, err)
	_, has := one.Fields["linkedin"]
	assert.False(t, has)
}

func TestEnrich_RerunIsIdempotent(t *testing.T) {
	startSearch(t)
	db := seededDB(t)
	spec := writeGrid(t, testGrid)
	args := []string{"--db", db, "--spec", spec, "--source", "link"}

	out, err := execute(t, enrichCommand("json", "run-1"), args...)
	require.NoError(t, err)
	first := decodeRunReport(t, out)

	out, err = execute(t, enrichCommand("json", "run-2"), args...)
	require.NoError(t, err)
	second := decodeRunReport(t, out)

	assert.Equal(t, first.Digest, second.Digest)
	assert.Equal(t, first.Succeeded, second.Succeeded)
}

func TestEnrich_Errors(t *testing.T) {
	startSearch(t)
	db := seededDB(t)
	spec := writeGrid(t, testGrid)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"unknown source", []string{"--source", "geo"}, ErrCodeUnknownSource},
		{"missing record", []string{"--source", "link", "--id", "99"}, ErrCodeRecordNotFound},
		{"invalid limit", []string{"--source", "link", "--limit", "-1"}, ErrCodeInvalidLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--db", db, "--spec", spec}, tt.args...)
			out, err := execute(t, enrichCommand("text", "run-err"), args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.code)
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestEnrich_UnsetEndpoint(t *testing.T) {
	db := seededDB(t)
	spec := writeGrid(t, testGrid)

	cmd := newEnrichCommand(&EnrichOptions{
		RootOptions: &RootOptions{Format: "text"},
		LookupEnv:   func(string) (string, bool) { return "", false },
	})
	out, err := execute(t, cmd, "--db", db, "--spec", spec, "--source", "link")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeSourceURL)
	assert.Contains(t, out, searchEnv)
}

func TestEnrich_InvalidSpec(t *testing.T) {
	db := seededDB(t)

	_, err := execute(t, enrichCommand("text", "run-x"), "--db", db, "--spec", t.TempDir(), "--source", "link")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
}
