package release

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/cruciblehq/shipyard/internal/backend"
	"github.com/cruciblehq/shipyard/internal/config"
	"github.com/cruciblehq/shipyard/internal/runtime"
	"github.com/cruciblehq/shipyard/internal/vm"
)

// A scripted backend on a machine that shares a directory with the host.
type Remote interface {
	backend.ScriptRunner

	// Adds a variable assignment to the pending script.
	SetEnv(key, value string)

	// Translates a host path in the shared directory to the guest's view.
	GuestPath(hostPath string) (string, error)
}

// Supplies the execution backends a run needs.
type Backends interface {

	// Returns the runner for host-side tooling such as reprepro.
	Host() backend.Runner

	// Returns a runner for a Direct pipeline working in dir. The release
	// function tears the backend down and is always non-nil on success.
	Direct(ctx context.Context, p config.Platform, dir string, env map[string]string) (r backend.Runner, release func(context.Context), err error)

	// Returns an unstarted scripted backend for p.
	Scripted(ctx context.Context, p config.Platform) (Remote, error)
}

// The production backends: host processes for macOS, VirtualBox for
// Windows, and containerd for Linux when container.enabled is set.
type HostBackends struct {
	cfg  *config.Config
	host *backend.Local
}

var _ Backends = (*HostBackends)(nil)

// Creates the production backends for cfg.
func NewBackends(cfg *config.Config) *HostBackends {
	return &HostBackends{cfg: cfg, host: backend.NewLocal()}
}

func (b *HostBackends) Host() backend.Runner {
	return b.host
}

func (b *HostBackends) Direct(ctx context.Context, p config.Platform, dir string, env map[string]string) (backend.Runner, func(context.Context), error) {
	if p == config.Linux && b.cfg.Container.Enabled {
		return b.container(ctx, p, dir, env)
	}
	return backend.NewLocal(backend.WithDir(dir), backend.WithEnv(env)), func(context.Context) {}, nil
}

// Starts a build container with dir mounted at the same path.
func (b *HostBackends) container(ctx context.Context, p config.Platform, dir string, env map[string]string) (backend.Runner, func(context.Context), error) {
	rt, err := runtime.New(b.cfg.Container.Address, b.cfg.Container.Namespace)
	if err != nil {
		return nil, nil, err
	}

	ctr, err := rt.StartContainer(ctx, runtime.Options{
		Image:    b.cfg.Container.Image,
		ID:       "shipyard-" + filepath.Base(dir),
		Platform: b.cfg.Container.Platform,
		Mounts:   []string{dir},
	})
	if err != nil {
		rt.Close()
		return nil, nil, err
	}

	release := func(ctx context.Context) {
		ctr.Destroy(ctx)
		if err := rt.Close(); err != nil {
			slog.Warn("closing container runtime", "error", err)
		}
	}
	return ctr.Runner(dir, env), release, nil
}

func (b *HostBackends) Scripted(context.Context, config.Platform) (Remote, error) {
	return vm.New(vm.Config{
		Name:          b.cfg.VM.Name,
		SSHAddr:       b.cfg.VM.SSHAddr,
		SSHUser:       b.cfg.VM.SSHUser,
		SSHKey:        b.cfg.VM.SSHKey,
		KnownHosts:    b.cfg.VM.KnownHosts,
		ShareDir:      b.cfg.VM.ShareDir,
		GuestShareDir: b.cfg.VM.GuestShareDir,
		BootTimeout:   b.cfg.VM.BootTimeout,
	}, b.host), nil
}
