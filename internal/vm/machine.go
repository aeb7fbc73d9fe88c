package vm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cruciblehq/shipyard/internal/backend"
	"github.com/cruciblehq/shipyard/internal/paths"
)

// Interval between SSH attempts while the guest boots.
const pollInterval = 5 * time.Second

// Describes the guest machine and how to reach it.
type Config struct {
	Name          string        // VirtualBox machine name.
	SSHAddr       string        // host:port of the guest's SSH server.
	SSHUser       string        // Guest login.
	SSHKey        string        // Private key file.
	KnownHosts    string        // known_hosts file; empty accepts any host key.
	ShareDir      string        // Host side of the shared folder.
	GuestShareDir string        // Guest side of the shared folder, e.g. Z:\.
	BootTimeout   time.Duration // How long to wait for SSH after startvm.
}

// Executes commands on the guest.
type shell interface {
	Exec(ctx context.Context, command string) (exitCode int, stderr string, err error)
	Close() error
}

// A VirtualBox guest driven through batch scripts.
//
// Machine implements [backend.ScriptRunner]. It is not safe for
// concurrent use; one build owns it from Start to Stop.
type Machine struct {
	cfg     Config
	host    backend.OutputRunner
	connect func(ctx context.Context) (shell, error)
	poll    time.Duration

	mu      sync.Mutex
	sh      shell
	started bool
	lines   []string
}

var _ backend.ScriptRunner = (*Machine)(nil)

// Script file counter, unique within the process.
var scriptSeq atomic.Uint64

// Creates a machine. VBoxManage runs through host.
func New(cfg Config, host backend.OutputRunner) *Machine {
	m := &Machine{cfg: cfg, host: host, poll: pollInterval}
	m.connect = func(ctx context.Context) (shell, error) {
		sh, err := dialSSH(ctx, m.cfg)
		if err != nil {
			return nil, err
		}
		return sh, nil
	}
	return m
}

// Boots the guest headless and waits until SSH accepts a session.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slog.Info("starting machine", "name", m.cfg.Name)

	if err := m.powerOffStale(ctx); err != nil {
		return err
	}
	if err := m.host.Run(ctx, "VBoxManage", "startvm", m.cfg.Name, "--type", "headless"); err != nil {
		return err
	}
	m.started = true

	sh, err := m.waitReachable(ctx)
	if err != nil {
		return err
	}
	m.sh = sh
	m.lines = nil

	slog.Info("machine reachable", "name", m.cfg.Name, "addr", m.cfg.SSHAddr)
	return nil
}

// Powers off a guest left running by an earlier run that never reached Stop.
func (m *Machine) powerOffStale(ctx context.Context) error {
	out, err := m.host.Output(ctx, "VBoxManage", "showvminfo", m.cfg.Name, "--machinereadable")
	if err != nil {
		return err
	}
	state := vmState(out)
	if !liveStates[state] {
		return nil
	}
	slog.Warn("machine already running, powering off", "name", m.cfg.Name, "state", state)
	return m.host.Run(ctx, "VBoxManage", "controlvm", m.cfg.Name, "poweroff")
}

// States in which startvm fails because the machine holds a session.
var liveStates = map[string]bool{
	"running":  true,
	"paused":   true,
	"stuck":    true,
	"starting": true,
}

// Returns the VMState value of showvminfo --machinereadable output.
func vmState(out []byte) string {
	for line := range strings.Lines(string(out)) {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "VMState="); ok {
			return strings.Trim(v, `"`)
		}
	}
	return ""
}

// Dials until the guest answers or the boot timeout expires.
func (m *Machine) waitReachable(ctx context.Context) (shell, error) {
	timeout := m.cfg.BootTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()

	for {
		sh, err := m.connect(ctx)
		if err == nil {
			return sh, nil
		}
		slog.Debug("machine not reachable yet", "name", m.cfg.Name, "error", err)

		select {
		case <-ctx.Done():
			return nil, wrap(ErrBoot, err)
		case <-ticker.C:
		}
	}
}

// Appends a command line to the pending script.
func (m *Machine) AppendScript(name string, args ...string) {
	m.append(commandLine(name, args...))
}

// Appends an environment assignment to the pending script.
//
// The value is visible to every later command in the same script.
func (m *Machine) SetEnv(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, setLine(key, value))
}

func (m *Machine) append(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, line, errorCheck)
}

// Writes the pending script into the shared folder and runs it on the guest.
//
// The pending script is consumed whether or not it succeeds.
func (m *Machine) RunScript(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sh == nil {
		return ErrNotStarted
	}
	lines := m.lines
	m.lines = nil

	hostPath := filepath.Join(m.cfg.ShareDir, fmt.Sprintf("shipyard-%d-%d.bat", os.Getpid(), scriptSeq.Add(1)))
	if err := os.WriteFile(hostPath, renderScript(lines), paths.DefaultFileMode); err != nil {
		return wrap(ErrScript, err)
	}
	defer os.Remove(hostPath)

	guestPath, err := m.guestPath(hostPath)
	if err != nil {
		return err
	}

	args := []string{"/c", guestPath}
	slog.Info("running script", "name", m.cfg.Name, "script", guestPath, "lines", len(lines))

	code, stderr, err := m.sh.Exec(ctx, "cmd.exe /c "+quoteArg(guestPath))
	if err != nil {
		return &backend.CommandError{Command: "cmd.exe", Args: args, ExitCode: -1, Stderr: stderr, Err: err}
	}
	if code != 0 {
		return &backend.CommandError{Command: "cmd.exe", Args: args, ExitCode: code, Stderr: stderr}
	}
	return nil
}

// Closes the session and powers the guest off. Safe to call repeatedly.
func (m *Machine) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lines = nil
	if m.sh != nil {
		if err := m.sh.Close(); err != nil {
			slog.Debug("closing ssh session", "error", err)
		}
		m.sh = nil
	}
	if !m.started {
		return nil
	}
	m.started = false

	slog.Info("stopping machine", "name", m.cfg.Name)
	return m.host.Run(ctx, "VBoxManage", "controlvm", m.cfg.Name, "poweroff")
}

// Translates a host path inside the shared folder to the guest's view.
func (m *Machine) GuestPath(hostPath string) (string, error) {
	return m.guestPath(hostPath)
}

func (m *Machine) guestPath(hostPath string) (string, error) {
	rel, err := filepath.Rel(m.cfg.ShareDir, hostPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideShare, hostPath)
	}

	root := strings.TrimRight(m.cfg.GuestShareDir, `\`)
	if rel == "." {
		return root + `\`, nil
	}
	return root + `\` + strings.ReplaceAll(rel, string(filepath.Separator), `\`), nil
}
