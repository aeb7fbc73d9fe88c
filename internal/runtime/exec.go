package runtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync/atomic"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	"github.com/cruciblehq/shipyard/internal/backend"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Sequence counter for generating unique exec process identifiers.
var execSeq uint64

// Returns a unique exec process identifier.
func nextExecID() string {
	return fmt.Sprintf("exec-%d", atomic.AddUint64(&execSeq, 1))
}

// Output of a command execution inside a container.
type ExecResult struct {
	ExitCode int    // Exit code of the process.
	Stdout   string // Captured standard output.
	Stderr   string // Captured standard error.
}

// Runs a command and arguments directly inside the container.
//
// The command is not wrapped in a shell. Environment variables and working
// directory override the container's OCI spec for this execution only. A
// non-zero exit code is reported in the result, not as an error.
func (c *Container) Exec(ctx context.Context, env []string, workdir string, args ...string) (*ExecResult, error) {
	var stdout, stderr bytes.Buffer
	exitCode, err := c.stream(ctx, env, workdir, &stdout, &stderr, args...)
	if err != nil {
		return nil, err
	}

	return &ExecResult{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// Runs a command like [Container.Exec], writing its output to stdout and
// stderr as it is produced.
func (c *Container) stream(ctx context.Context, env []string, workdir string, stdout, stderr io.Writer, args ...string) (int, error) {
	pspec, err := c.buildProcessSpec(ctx, env, workdir, args...)
	if err != nil {
		return 0, wrap(ErrRuntime, err)
	}
	return c.execProcess(ctx, pspec, stdout, stderr)
}

// Bytes of stderr kept for a failed command's error.
const stderrTail = 4096

// Returns a [backend.Runner] that executes commands in this container.
//
// Every command runs in workdir with env layered over the image
// environment. Output goes to the debug log line by line while the command
// runs. A non-zero exit becomes a [*backend.CommandError].
func (c *Container) Runner(workdir string, env map[string]string) backend.Runner {
	return &containerRunner{exec: c.stream, workdir: workdir, env: environ(env)}
}

type containerRunner struct {
	exec    func(ctx context.Context, env []string, workdir string, stdout, stderr io.Writer, args ...string) (int, error)
	workdir string
	env     []string
}

func (r *containerRunner) Run(ctx context.Context, name string, args ...string) error {
	logw := backend.NewLineLogger(name)
	tail := backend.NewTailBuffer(stderrTail)

	code, err := r.exec(ctx, r.env, r.workdir, logw, io.MultiWriter(logw, tail), append([]string{name}, args...)...)
	logw.Flush()
	if err != nil {
		return &backend.CommandError{Command: name, Args: args, ExitCode: -1, Err: err}
	}
	if code != 0 {
		return &backend.CommandError{Command: name, Args: args, ExitCode: code, Stderr: tail.String()}
	}
	return nil
}

// Builds an OCI process spec for running a command inside the container.
//
// The base values are copied from the container's own OCI spec, then env and
// workdir are overridden if provided.
func (c *Container) buildProcessSpec(ctx context.Context, env []string, workdir string, args ...string) (*specs.Process, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return nil, err
	}

	spec, err := ctr.Spec(ctx)
	if err != nil {
		return nil, err
	}

	pspec := *spec.Process
	pspec.Terminal = false
	pspec.Args = args

	if len(env) > 0 {
		pspec.Env = mergeEnv(pspec.Env, env)
	}
	if workdir != "" {
		pspec.Cwd = workdir
	}

	return &pspec, nil
}

// Merges override env vars on top of a base env slice.
func mergeEnv(base, overrides []string) []string {
	merged := make(map[string]string, len(base)+len(overrides))
	for _, entry := range base {
		if k, v, ok := strings.Cut(entry, "="); ok {
			merged[k] = v
		}
	}
	for _, entry := range overrides {
		if k, v, ok := strings.Cut(entry, "="); ok {
			merged[k] = v
		}
	}

	return environ(merged)
}

// Formats a map as sorted "key=value" entries.
func environ(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		result = append(result, k+"="+env[k])
	}
	return result
}

// Starts a process inside the container's running task, waits for it to
// exit, and returns the exit code.
//
// The process is attached to the task as an additional exec, not as the
// primary process, so the task must already be running.
func (c *Container) execProcess(ctx context.Context, pspec *specs.Process, stdout, stderr io.Writer) (int, error) {
	task, err := c.loadTask(ctx)
	if err != nil {
		return 0, err
	}

	process, err := task.Exec(ctx, nextExecID(), pspec, cio.NewCreator(
		cio.WithStreams(nil, stdout, stderr),
	))
	if err != nil {
		return 0, wrap(ErrRuntime, err)
	}

	return awaitProcess(ctx, process)
}

// Loads the container's running task.
func (c *Container) loadTask(ctx context.Context) (containerd.Task, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return nil, wrap(ErrRuntime, err)
	}

	task, err := ctr.Task(ctx, nil)
	if err != nil {
		return nil, wrap(ErrRuntime, err)
	}

	return task, nil
}

// Waits for an exec process to exit and returns the exit code.
//
// The process is always deleted before returning.
func awaitProcess(ctx context.Context, process containerd.Process) (int, error) {
	statusC, err := process.Wait(ctx)
	if err != nil {
		process.Delete(ctx)
		return 0, wrap(ErrRuntime, err)
	}

	if err := process.Start(ctx); err != nil {
		process.Delete(ctx)
		return 0, wrap(ErrRuntime, err)
	}

	exitStatus := <-statusC
	process.Delete(ctx)

	code, _, err := exitStatus.Result()
	if err != nil {
		return 0, wrap(ErrRuntime, err)
	}

	return int(code), nil
}
