package release

import (
	"errors"
	"fmt"
)

var (
	ErrCredential = errors.New("signing credential unavailable")
	ErrPlatform   = errors.New("platform build failed")
	ErrSync       = errors.New("artifact sync failed")
	ErrWorkdir    = errors.New("cannot prepare build directory")
	ErrUnknown    = errors.New("unknown platform")
)

// Joins a sentinel with its cause so both match errors.Is.
func wrap(sentinel, err error) error {
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Like wrap, with context between sentinel and cause.
func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)
}
