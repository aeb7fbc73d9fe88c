package source

import (
	"errors"
	"fmt"
)

var (
	ErrClone       = errors.New("clone failed")
	ErrRefNotFound = errors.New("ref not found")
)

// Joins a sentinel with its cause so both match errors.Is.
func wrap(sentinel, err error) error {
	return fmt.Errorf("%w: %w", sentinel, err)
}
