package backend

import (
	"errors"
	"fmt"
	"strings"
)

var ErrCommandFailed = errors.New("command failed")

// Describes a command that could not run or exited with a non-zero code.
type CommandError struct {
	Command  string   // Program name.
	Args     []string // Program arguments.
	ExitCode int      // Exit code, or -1 if the process did not run to completion.
	Stderr   string   // Tail of the standard error stream.
	Err      error    // Underlying error, if the process could not be started or waited on.
}

func (e *CommandError) Error() string {
	cmd := strings.TrimSpace(e.Command + " " + strings.Join(e.Args, " "))
	var msg string
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s: %v", ErrCommandFailed, cmd, e.Err)
	} else {
		msg = fmt.Sprintf("%s: %s: exit code %d", ErrCommandFailed, cmd, e.ExitCode)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += " (" + s + ")"
	}
	return msg
}

// Unwraps to [ErrCommandFailed] and the underlying error.
func (e *CommandError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrCommandFailed, e.Err}
	}
	return []error{ErrCommandFailed}
}
