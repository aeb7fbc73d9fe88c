package manifest

import (
	"errors"
	"fmt"
)

var (
	ErrRead    = errors.New("cannot read manifest")
	ErrVersion = errors.New("invalid manifest version")
	ErrWrite   = errors.New("cannot write build file")
)

// Joins a sentinel with its cause so both match errors.Is.
func wrap(sentinel, err error) error {
	return fmt.Errorf("%w: %w", sentinel, err)
}
