package credentials

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("credential not found")
	ErrUnavailable = errors.New("credential store unavailable")
	ErrSource      = errors.New("unknown credential source")
)

// Joins a sentinel with its cause so both match errors.Is.
func wrap(sentinel, err error) error {
	return fmt.Errorf("%w: %w", sentinel, err)
}
