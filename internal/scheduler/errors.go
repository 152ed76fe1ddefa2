package scheduler

import (
	"errors"
	"fmt"

	"github.com/roach88/gridfill/internal/record"
)

// ErrInvalidLimit is returned by Run when the concurrency limit is below 1.
var ErrInvalidLimit = errors.New("concurrency limit must be at least 1")

// TaskError reports that the task for one record could not produce an
// update. The record is left untouched and the run continues.
type TaskError struct {
	RecordID record.ID
	Cause    error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("record %d: %v", e.RecordID, e.Cause)
}

func (e *TaskError) Unwrap() error {
	return e.Cause
}

// PanicError is the cause recorded when a task panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// IsTaskError returns true if err is or wraps a TaskError.
// Uses errors.As to handle wrapped errors.
func IsTaskError(err error) bool {
	var te *TaskError
	return errors.As(err, &te)
}

// IsPanic returns true if err is or wraps a PanicError.
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}
