package debrepo

import (
	"errors"
	"fmt"
)

var (
	ErrDistributions = errors.New("cannot read distributions")
	ErrIngest        = errors.New("ingest failed")
)

// Joins a sentinel with its cause so both match errors.Is.
func wrap(sentinel, err error) error {
	return fmt.Errorf("%w: %w", sentinel, err)
}
