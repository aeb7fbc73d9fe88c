package release

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/cruciblehq/shipyard/internal/backend"
	"github.com/cruciblehq/shipyard/internal/config"
	"github.com/cruciblehq/shipyard/internal/credentials"
	"github.com/cruciblehq/shipyard/internal/manifest"
	"github.com/cruciblehq/shipyard/internal/mirror"
)

const testVersion = "1.6.0"

// Writes a manifest and control template as a clone would.
type fakeSource struct {
	mu     sync.Mutex
	clones []string
}

func (s *fakeSource) Clone(_ context.Context, ref, dir string) error {
	s.mu.Lock()
	s.clones = append(s.clones, dir)
	s.mu.Unlock()

	pkg := map[string]any{
		"name":        "element-desktop",
		"productName": "Element Nightly",
		"version":     testVersion,
		"build": map[string]any{
			"appId":         "im.riot.nightly",
			"extraMetadata": map[string]any{"productName": "Element Nightly"},
		},
	}
	data, err := json.Marshal(pkg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, manifest.File), data, 0644); err != nil {
		return err
	}

	tmpl := filepath.Join(dir, filepath.FromSlash(config.DefaultControlTemplate))
	if err := os.MkdirAll(filepath.Dir(tmpl), 0755); err != nil {
		return err
	}
	return os.WriteFile(tmpl, []byte("Package: element-nightly\n"), 0644)
}

// Counts acquisitions.
type fakeCredentials struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *fakeCredentials) Acquire(context.Context) (credentials.Credential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return credentials.Credential{}, c.err
	}
	return credentials.NewCredential("passphrase"), nil
}

// Writes the outputs a platform's packaging step would produce.
func writeOutputs(dir string, p config.Platform) error {
	var out string
	var files []string
	switch p {
	case config.Mac:
		out = "dist"
		files = []string{"Element Nightly-" + testVersion + "-universal.dmg", "Element Nightly-" + testVersion + "-universal-mac.zip", "builder-debug.yml"}
	case config.Linux:
		out = "dist"
		files = []string{"element-nightly_" + testVersion + "_amd64.deb"}
	case config.Win64, config.Win32:
		out = "dist/squirrel-windows"
		if p == config.Win32 {
			out += "-ia32"
		}
		files = []string{"Element Nightly Setup " + testVersion + ".exe", "element-nightly-" + testVersion + "-full.nupkg", "RELEASES"}
	}

	out = filepath.Join(dir, filepath.FromSlash(out))
	if err := os.MkdirAll(out, 0755); err != nil {
		return err
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(out, f), []byte(f), 0644); err != nil {
			return err
		}
	}
	return nil
}

// Records commands and fakes the packaging step.
type fakeRunner struct {
	backends *fakeBackends
	platform config.Platform
	dir      string
	env      map[string]string
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	b := r.backends
	b.mu.Lock()
	b.commands[r.platform] = append(b.commands[r.platform], append([]string{name}, args...))
	entered, block := b.entered, b.block
	b.entered = nil
	b.mu.Unlock()

	if entered != nil {
		close(entered)
		<-block
	}

	if name != "yarn" || len(args) == 0 || args[0] != "build" {
		return nil
	}
	if b.fail[r.platform] {
		return &backend.CommandError{Command: name, Args: args, ExitCode: 1, Stderr: "packaging failed"}
	}

	data, err := os.ReadFile(filepath.Join(r.dir, manifest.BuildConfigFile))
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.configs[r.platform] = data
	b.mu.Unlock()

	return writeOutputs(r.dir, r.platform)
}

// A scripted machine that runs the script by writing outputs.
type fakeRemote struct {
	backends *fakeBackends
	platform config.Platform
	dir      string
	lines    [][]string
	env      map[string]string
	started  bool
	stops    int
}

func (m *fakeRemote) Start(context.Context) error {
	if m.backends.startErr != nil {
		return m.backends.startErr
	}
	m.started = true
	return nil
}

func (m *fakeRemote) AppendScript(name string, args ...string) {
	m.lines = append(m.lines, append([]string{name}, args...))
}

func (m *fakeRemote) SetEnv(key, value string) {
	if m.env == nil {
		m.env = map[string]string{}
	}
	m.env[key] = value
}

func (m *fakeRemote) GuestPath(hostPath string) (string, error) {
	m.dir = hostPath
	return `Z:\` + filepath.Base(hostPath), nil
}

func (m *fakeRemote) RunScript(context.Context) error {
	if m.backends.fail[m.platform] {
		return &backend.CommandError{Command: "cmd.exe", ExitCode: 1}
	}
	return writeOutputs(m.dir, m.platform)
}

func (m *fakeRemote) Stop(context.Context) error {
	m.stops++
	m.started = false
	return nil
}

// Records host commands such as reprepro.
type hostRunner struct {
	mu    sync.Mutex
	calls [][]string
}

func (h *hostRunner) Run(_ context.Context, name string, args ...string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, append([]string{name}, args...))
	return nil
}

type fakeBackends struct {
	mu       sync.Mutex
	host     *hostRunner
	commands map[config.Platform][][]string
	configs  map[config.Platform][]byte
	envs     map[config.Platform]map[string]string
	remotes  []*fakeRemote
	fail     map[config.Platform]bool
	startErr error
	released int

	entered chan struct{}
	block   chan struct{}
}

func newFakeBackends() *fakeBackends {
	return &fakeBackends{
		host:     &hostRunner{},
		commands: map[config.Platform][][]string{},
		configs:  map[config.Platform][]byte{},
		envs:     map[config.Platform]map[string]string{},
		fail:     map[config.Platform]bool{},
	}
}

func (b *fakeBackends) Host() backend.Runner { return b.host }

func (b *fakeBackends) Direct(_ context.Context, p config.Platform, dir string, env map[string]string) (backend.Runner, func(context.Context), error) {
	b.mu.Lock()
	b.envs[p] = env
	b.mu.Unlock()

	release := func(context.Context) {
		b.mu.Lock()
		b.released++
		b.mu.Unlock()
	}
	return &fakeRunner{backends: b, platform: p, dir: dir, env: env}, release, nil
}

func (b *fakeBackends) Scripted(_ context.Context, p config.Platform) (Remote, error) {
	m := &fakeRemote{backends: b, platform: p}
	b.mu.Lock()
	b.remotes = append(b.remotes, m)
	b.mu.Unlock()
	return m, nil
}

// Records channel operations in order.
type recordingChannel struct {
	mirror.Channel
	mu  sync.Mutex
	ops []string
}

func (c *recordingChannel) Pull(ctx context.Context, remote, local string) error {
	c.record("pull " + remote)
	return c.Channel.Pull(ctx, remote, local)
}

func (c *recordingChannel) Push(ctx context.Context, local, remote string) error {
	c.record("push " + remote)
	return c.Channel.Push(ctx, local, remote)
}

func (c *recordingChannel) record(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, op)
}

func (c *recordingChannel) Ops() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.ops)
}
