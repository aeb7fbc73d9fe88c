package server

import (
	"errors"
	"fmt"
)

var (
	ErrServer   = errors.New("server error")
	ErrClient   = errors.New("cannot reach daemon")
	ErrResponse = errors.New("daemon returned an error")
)

// Joins a sentinel with its cause so both match errors.Is.
func wrap(sentinel, err error) error {
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Like wrap, with context between sentinel and cause.
func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)
}
