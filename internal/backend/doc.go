// Defines how build commands are executed.
//
// Two capability shapes exist. A [Runner] executes one command at a time
// and blocks until it exits; a failed command returns a [*CommandError] and
// callers stop their sequence there. A [ScriptRunner] accumulates commands
// with AppendScript and executes them as a single unit with RunScript,
// bracketed by Start and Stop; it is used for remote machines that are only
// reachable through a generated script.
//
// Callers depend on these interfaces only. [Local] runs processes on the
// host; the runtime package provides a containerized Runner and the vm
// package a remote ScriptRunner.
//
// Example usage:
//
//	r := backend.NewLocal(backend.WithDir(src), backend.WithEnvVar("CI", "1"))
//	if err := r.Run(ctx, "yarn", "install"); err != nil {
//	    return err
//	}
package backend
