package order

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedSortKey matches any UnsupportedKeyError.
	ErrUnsupportedSortKey = errors.New("unsupported sort key")

	// ErrInvalidKey is returned when a sort key string cannot be parsed.
	ErrInvalidKey = errors.New("invalid sort key")
)

// UnsupportedKeyError reports a sort key naming a field the Schema does not
// recognize.
type UnsupportedKeyError struct {
	Key string
}

func (e *UnsupportedKeyError) Error() string {
	return fmt.Sprintf("unsupported sort key %q", e.Key)
}

// Is lets errors.Is(err, ErrUnsupportedSortKey) match.
func (e *UnsupportedKeyError) Is(target error) bool {
	return target == ErrUnsupportedSortKey
}

// IsUnsupportedKey returns true if err is or wraps an UnsupportedKeyError.
// Uses errors.As to handle wrapped errors.
func IsUnsupportedKey(err error) bool {
	var uk *UnsupportedKeyError
	return errors.As(err, &uk)
}
