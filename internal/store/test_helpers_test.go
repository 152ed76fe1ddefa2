package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/gridfill/internal/record"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord builds a record from plain Go scalars.
func createTestRecord(id int64, fields map[string]any) record.Record {
	return record.Record{ID: record.ID(id), Fields: record.MustFields(fields)}
}
