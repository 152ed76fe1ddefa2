package cli

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridfill/internal/record"
)

func TestSort_TableGolden(t *testing.T) {
	db := seededDB(t)
	spec := writeGrid(t, testGrid)

	out, err := execute(t, NewSortCommand(&RootOptions{Format: "text"}),
		"--db", db, "--spec", spec, "--by", "country", "--by", "progress:desc")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "sort_country_progress", []byte(trimLines(out)))
}

func sortOrder(t *testing.T, args ...string) []record.ID {
	t.Helper()
	out, err := execute(t, NewSortCommand(&RootOptions{Format: "json"}), args...)
	require.NoError(t, err)

	var resp struct {
		Status string   `json:"status"`
		Data   SortView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Records, len(resp.Data.Order))
	for i, rec := range resp.Data.Records {
		assert.Equal(t, resp.Data.Order[i], rec.ID)
	}
	return resp.Data.Order
}

func TestSort_JSONOrder(t *testing.T) {
	db := seededDB(t)
	spec := writeGrid(t, testGrid)

	tests := []struct {
		name string
		args []string
		want []record.ID
	}{
		{"no keys keeps insertion order", nil, []record.ID{1, 2, 3}},
		{"comma separated keys", []string{"--by", "country,progress:desc"}, []record.ID{2, 3, 1}},
		{"id descending", []string{"--by", "id:desc"}, []record.ID{3, 2, 1}},
		{"bool then name", []string{"--by", "available:desc,name:desc"}, []record.ID{3, 1, 2}},
		{"ties keep insertion order", []string{"--by", "country:desc"}, []record.ID{1, 3, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--db", db, "--spec", spec}, tt.args...)
			assert.Equal(t, tt.want, sortOrder(t, args...))
		})
	}
}

func TestSort_WithoutSpecInfersColumns(t *testing.T) {
	db := seededDB(t)

	assert.Equal(t, []record.ID{3, 2, 1}, sortOrder(t, "--db", db, "--by", "name:desc"))

	out, err := execute(t, NewSortCommand(&RootOptions{Format: "text"}), "--db", db, "--by", "client")
	require.NoError(t, err)
	assert.Contains(t, out, "id  available  client  country  name  progress")
}

func TestSort_UnsupportedKey(t *testing.T) {
	db := seededDB(t)
	spec := writeGrid(t, testGrid)

	for _, key := range []string{"salary", "linkedin"} {
		t.Run(key, func(t *testing.T) {
			out, err := execute(t, NewSortCommand(&RootOptions{Format: "text"}),
				"--db", db, "--spec", spec, "--by", "country", "--by", key)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), ErrCodeUnsupportedKey)
			assert.Contains(t, out, "unsupported sort key")
			assert.NotContains(t, out, "Peru")
		})
	}
}

func TestSort_InvalidKey(t *testing.T) {
	db := seededDB(t)

	_, err := execute(t, NewSortCommand(&RootOptions{Format: "text"}), "--db", db, "--by", "country:sideways")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeInvalidKey)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSort_InvalidLanguage(t *testing.T) {
	db := seededDB(t)

	_, err := execute(t, NewSortCommand(&RootOptions{Format: "text"}), "--db", db, "--lang", "!!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --lang")
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "", formatCell(nil))
	assert.Equal(t, "", formatCell(record.Null{}))
	assert.Equal(t, "Chad", formatCell(record.String("Chad")))
	assert.Equal(t, "12.5", formatCell(record.Number(12.5)))
	assert.Equal(t, "yes", formatCell(record.Bool(true)))
	assert.Equal(t, "no", formatCell(record.Bool(false)))
}
