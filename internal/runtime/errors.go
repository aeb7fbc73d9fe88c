package runtime

import (
	"errors"
	"fmt"
)

var (
	ErrRuntime = errors.New("runtime error")
	ErrImage   = errors.New("image unavailable")
)

// Joins a sentinel with its cause so both match errors.Is.
func wrap(sentinel, err error) error {
	return fmt.Errorf("%w: %w", sentinel, err)
}
