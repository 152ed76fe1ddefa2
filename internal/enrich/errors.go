package enrich

import (
	"errors"
	"fmt"

	"github.com/roach88/gridfill/internal/record"
)

// ErrNoData is wrapped by ExtractError when the response lacks the expected
// payload.
var ErrNoData = errors.New("no data in response")

// MissingFieldError reports that a record has no usable lookup value.
type MissingFieldError struct {
	RecordID record.ID
	Field    string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record %d has no value for %q", e.RecordID, e.Field)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// ExtractError reports that a response did not hold the value at Path.
type ExtractError struct {
	Path string
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// IsMissingField returns true if err is or wraps a MissingFieldError.
func IsMissingField(err error) bool {
	var mf *MissingFieldError
	return errors.As(err, &mf)
}

// IsStatus returns true if err is or wraps a StatusError.
func IsStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
