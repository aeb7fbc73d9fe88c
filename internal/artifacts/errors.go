package artifacts

import (
	"errors"
	"fmt"
)

var (
	ErrNoMatch = errors.New("no artifacts matched")
	ErrCopy    = errors.New("cannot copy artifact")
)

// Joins a sentinel with its cause so both match errors.Is.
func wrap(sentinel, err error) error {
	return fmt.Errorf("%w: %w", sentinel, err)
}
