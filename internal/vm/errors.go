package vm

import (
	"errors"
	"fmt"
)

var (
	ErrBoot         = errors.New("machine did not become reachable")
	ErrNotStarted   = errors.New("machine not started")
	ErrOutsideShare = errors.New("path outside shared directory")
	ErrScript       = errors.New("cannot write script")
)

// Joins a sentinel with its cause so both match errors.Is.
func wrap(sentinel, err error) error {
	return fmt.Errorf("%w: %w", sentinel, err)
}
