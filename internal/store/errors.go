package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/gridfill/internal/record"
)

var (
	// ErrRecordNotFound matches any NotFoundError.
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateRecord is returned when an inserted id already exists.
	ErrDuplicateRecord = errors.New("duplicate record id")

	// ErrRunNotFound is returned when a run id has no journal entry.
	ErrRunNotFound = errors.New("run not found")
)

// NotFoundError reports that an update or read targeted an id absent from
// the store, e.g. a record deleted while its enrichment was in flight.
type NotFoundError struct {
	ID record.ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record %d not found", e.ID)
}

// Is lets errors.Is(err, ErrRecordNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrRecordNotFound
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// isPrimaryKeyViolation reports whether err is a SQLite primary key or
// unique constraint failure.
func isPrimaryKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
