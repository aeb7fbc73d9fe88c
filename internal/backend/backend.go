package backend

import "context"

// Executes commands one at a time.
//
// Run blocks until the command exits. A non-zero exit returns a
// [*CommandError]. Calls are strictly ordered by the caller.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// A [Runner] that can also capture what a command prints.
type OutputRunner interface {
	Runner
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Accumulates commands into a script and executes it as one unit.
//
// Start prepares the environment that executes the script. AppendScript
// only records a command; nothing runs until RunScript. Stop tears the
// environment down and is safe to call more than once. Callers always
// defer Stop after a successful Start.
type ScriptRunner interface {
	Start(ctx context.Context) error
	AppendScript(name string, args ...string)
	RunScript(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runs commands in order, stopping at the first failure.
func RunAll(ctx context.Context, r Runner, cmds [][]string) error {
	for _, cmd := range cmds {
		if len(cmd) == 0 {
			continue
		}
		if err := r.Run(ctx, cmd[0], cmd[1:]...); err != nil {
			return err
		}
	}
	return nil
}
