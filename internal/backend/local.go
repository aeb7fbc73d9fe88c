package backend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"slices"
	"sync"
)

// Amount of standard error kept for error reports.
const stderrTail = 4096

// Runs commands as host processes.
type Local struct {
	dir    string
	env    map[string]string
	output io.Writer
}

// Configures a [Local] runner.
type Option func(*Local)

// Sets the working directory of every command.
func WithDir(dir string) Option {
	return func(l *Local) {
		l.dir = dir
	}
}

// Adds environment variables on top of the current process environment.
func WithEnv(env map[string]string) Option {
	return func(l *Local) {
		maps.Copy(l.env, env)
	}
}

// Adds a single environment variable.
func WithEnvVar(key, value string) Option {
	return func(l *Local) {
		l.env[key] = value
	}
}

// Copies command output to w in addition to the debug log.
func WithOutput(w io.Writer) Option {
	return func(l *Local) {
		l.output = w
	}
}

// Creates a host process runner.
func NewLocal(opts ...Option) *Local {
	l := &Local{env: make(map[string]string)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Returns a copy of the runner with a different working directory.
func (l *Local) In(dir string) *Local {
	return &Local{dir: dir, env: maps.Clone(l.env), output: l.output}
}

// Runs a command and waits for it to exit.
func (l *Local) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = l.dir
	if len(l.env) > 0 {
		cmd.Env = append(os.Environ(), l.environ()...)
	}

	logw := NewLineLogger(name)
	tail := NewTailBuffer(stderrTail)

	stdout := []io.Writer{logw}
	stderr := []io.Writer{logw, tail}
	if l.output != nil {
		stdout = append(stdout, l.output)
		stderr = append(stderr, l.output)
	}
	cmd.Stdout = io.MultiWriter(stdout...)
	cmd.Stderr = io.MultiWriter(stderr...)

	slog.Debug("run", "command", name, "args", args, "dir", l.dir)

	err := cmd.Run()
	logw.Flush()
	if err == nil {
		return nil
	}

	cerr := &CommandError{Command: name, Args: args, ExitCode: -1, Stderr: tail.String()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cerr.ExitCode = exitErr.ExitCode()
	} else {
		cerr.Err = err
	}
	return cerr
}

var _ OutputRunner = (*Local)(nil)

// Runs a command and returns what it printed.
//
// Standard error is captured along with standard output.
func (l *Local) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	var out bytes.Buffer
	r := l.In(l.dir)
	WithOutput(&out)(r)
	if err := r.Run(ctx, name, args...); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Formats the extra environment as sorted "key=value" entries.
func (l *Local) environ() []string {
	env := make([]string, 0, len(l.env))
	for _, k := range slices.Sorted(maps.Keys(l.env)) {
		env = append(env, k+"="+l.env[k])
	}
	return env
}

// Forwards complete output lines to the debug log.
type LineLogger struct {
	mu      sync.Mutex
	command string
	buf     bytes.Buffer
}

// Creates a writer that logs each line tagged with the command name.
func NewLineLogger(command string) *LineLogger {
	return &LineLogger{command: command}
}

func (w *LineLogger) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(bytes.TrimRight(w.buf.Next(i+1), "\r\n"))
		slog.Debug(line, "command", w.command)
	}
	return len(p), nil
}

// Logs any trailing partial line.
func (w *LineLogger) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		slog.Debug(w.buf.String(), "command", w.command)
		w.buf.Reset()
	}
}

// Keeps the last max bytes written to it.
type TailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

// Creates a buffer retaining at most max bytes.
func NewTailBuffer(max int) *TailBuffer {
	return &TailBuffer{max: max}
}

func (t *TailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *TailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
