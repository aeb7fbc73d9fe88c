package mirror

import (
	"errors"
	"fmt"
)

var (
	ErrRoot     = errors.New("invalid mirror root")
	ErrTransfer = errors.New("mirror transfer failed")
)

// Joins a sentinel with its cause so both match errors.Is.
func wrap(sentinel, err error) error {
	return fmt.Errorf("%w: %w", sentinel, err)
}
