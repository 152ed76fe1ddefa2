package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidSpec(t *testing.T) {
	dir := writeGrid(t, testGrid)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Equal(t, "✓ Grid spec valid (7 columns, 1 sources)\n", out)
}

func TestValidateValidSpecJSON(t *testing.T) {
	dir := writeGrid(t, testGrid)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 1, resp.Data.Files)
	assert.Equal(t, []string{"id", "name", "client", "country", "progress", "available", "linkedin"}, resp.Data.Columns)
	assert.Equal(t, []string{"link"}, resp.Data.Sources)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E005") // ErrCodeNotFound
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E003")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "no CUE files found")
}

func TestValidateInvalidSpecs(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		code    string
		message string
	}{
		{
			name:    "undeclared query column",
			from:    `query:   "client"`,
			to:      `query:   "email"`,
			code:    ErrCodeSourceQuery,
			message: `query field "email" is not a declared column`,
		},
		{
			name: "unknown extractor",
			from: `extract: "link"`,
			to:   `extract: "scrape"`,
			code: ErrCodeSchema,
		},
		{
			name:    "bad timeout",
			from:    `timeout:     "2s"`,
			to:      `timeout:     "soon"`,
			code:    ErrCodeTimeout,
			message: `invalid duration "soon"`,
		},
		{
			name:    "summary on a number column",
			from:    `summary:     "available"`,
			to:      `summary:     "progress"`,
			code:    ErrCodeSummary,
			message: "must name a bool column",
		},
		{
			name:    "url and env together",
			from:    `env:     "GRIDFILL_TEST_SEARCH_URL"`,
			to:      `env: "X", url: "https://search.example/?q="`,
			code:    ErrCodeSource,
			message: "exactly one of url or env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := strings.Replace(testGrid, tt.from, tt.to, 1)
			require.NotEqual(t, testGrid, src)
			dir := writeGrid(t, src)

			out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), dir)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.code)
			assert.Contains(t, out, "✗ Validation failed")
			assert.Contains(t, out, tt.code+": ")
			if tt.message != "" {
				assert.Contains(t, out, tt.message)
			}
		})
	}
}

func TestValidateReportsLine(t *testing.T) {
	src := strings.Replace(testGrid, `query:   "client"`, `query:   "email"`, 1)
	dir := writeGrid(t, src)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSourceQuery, resp.Error.Code)

	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(16), details["line"])
}
