package release

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cruciblehq/shipyard/internal/artifacts"
	"github.com/cruciblehq/shipyard/internal/backend"
	"github.com/cruciblehq/shipyard/internal/config"
	"github.com/cruciblehq/shipyard/internal/credentials"
	"github.com/cruciblehq/shipyard/internal/debrepo"
	"github.com/cruciblehq/shipyard/internal/manifest"
	"github.com/cruciblehq/shipyard/internal/paths"
)

// Builds one platform and copies its outputs into the local published tree.
func (o *Orchestrator) buildPlatform(ctx context.Context, log *slog.Logger, p config.Platform, cred credentials.Credential) (err error) {
	plan, err := PlanFor(p)
	if err != nil {
		return err
	}

	dir := o.cfg.BuildDir(p)
	if err := freshDir(dir); err != nil {
		return wrap(ErrWorkdir, err)
	}
	defer func() { o.removeDir(log, dir, err != nil) }()

	version, err := o.prepare(ctx, log, plan, dir)
	if err != nil {
		return err
	}

	switch plan.Pipeline {
	case Scripted:
		err = o.runScripted(ctx, log, plan, dir, version, cred)
	default:
		err = o.runDirect(ctx, log, plan, dir, version, cred)
	}
	if err != nil {
		return err
	}

	return o.postProcess(ctx, log, plan, dir, version)
}

// Clones the source, reads its version and writes the generated build files.
func (o *Orchestrator) prepare(ctx context.Context, log *slog.Logger, plan Plan, dir string) (string, error) {
	log.Info("cloning source", "ref", o.cfg.Branch, "dir", dir)
	if err := o.deps.Source.Clone(ctx, o.cfg.Branch, dir); err != nil {
		return "", err
	}

	m, err := manifest.Read(dir)
	if err != nil {
		return "", err
	}
	log.Info("resolved version", "version", m.Version, "prerelease", m.Prerelease())

	cfg, err := manifest.BuildConfig(m, manifest.ProductName(plan.Platform, m, o.cfg.LinuxProductName))
	if err != nil {
		return "", err
	}
	if _, err := manifest.WriteBuildConfig(dir, cfg); err != nil {
		return "", err
	}

	if plan.Platform == config.Linux {
		tmpl := filepath.Join(dir, filepath.FromSlash(o.cfg.Debian.ControlTemplate))
		if err := manifest.WriteControlFile(tmpl, filepath.Join(dir, manifest.ControlFile), m.Version); err != nil {
			return "", err
		}
	}
	return m.Version, nil
}

// Runs the build commands one by one, then extracts the outputs.
func (o *Orchestrator) runDirect(ctx context.Context, log *slog.Logger, plan Plan, dir, version string, cred credentials.Credential) error {
	env := map[string]string{}
	if plan.SigningEnv != "" {
		env[plan.SigningEnv] = cred.Value()
	}

	runner, release, err := o.deps.Backends.Direct(ctx, plan.Platform, dir, env)
	if err != nil {
		return err
	}
	defer release(ctx)

	log.Info("running build commands")
	if err := backend.RunAll(ctx, runner, plan.Commands(version)); err != nil {
		return err
	}
	return o.extract(log, plan, dir)
}

// Runs the build commands as one script on the build machine, then
// extracts the outputs through the shared directory. The machine is
// stopped on every path out.
func (o *Orchestrator) runScripted(ctx context.Context, log *slog.Logger, plan Plan, dir, version string, cred credentials.Credential) error {
	m, err := o.deps.Backends.Scripted(ctx, plan.Platform)
	if err != nil {
		return err
	}

	guestDir, err := m.GuestPath(dir)
	if err != nil {
		return err
	}

	if err := m.Start(ctx); err != nil {
		stopMachine(ctx, log, m)
		return err
	}
	defer stopMachine(ctx, log, m)

	if plan.SigningEnv != "" {
		m.SetEnv(plan.SigningEnv, cred.Value())
	}
	m.AppendScript("cd", "/d", guestDir)
	for _, cmd := range plan.Commands(version) {
		m.AppendScript(cmd[0], cmd[1:]...)
	}

	log.Info("running build script")
	if err := m.RunScript(ctx); err != nil {
		return err
	}
	return o.extract(log, plan, dir)
}

func stopMachine(ctx context.Context, log *slog.Logger, m Remote) {
	if err := m.Stop(ctx); err != nil {
		log.Warn("stopping build machine", "error", err)
	}
}

// Copies outputs into the local published tree.
//
// Every rule is matched before anything is copied, so an empty match
// leaves the tree untouched. Destination directories are emptied first;
// the pushed tree then holds only this run's files for the platform.
func (o *Orchestrator) extract(log *slog.Logger, plan Plan, dir string) error {
	if len(plan.Rules) == 0 {
		return nil
	}

	for _, rule := range plan.Rules {
		if _, err := artifacts.Filter(filepath.Join(dir, filepath.FromSlash(rule.Dir)), rule.Pattern); err != nil {
			return err
		}
	}

	desktop := filepath.Join(o.cfg.PublishedDir(), desktopTree)
	cleared := map[string]bool{}
	for _, rule := range plan.Rules {
		dest := filepath.Join(desktop, filepath.FromSlash(rule.Dest))
		if !cleared[dest] {
			if err := os.RemoveAll(dest); err != nil {
				return wrap(ErrWorkdir, err)
			}
			cleared[dest] = true
		}

		copied, err := artifacts.CopyMatching(filepath.Join(dir, filepath.FromSlash(rule.Dir)), rule.Pattern, dest)
		if err != nil {
			return err
		}
		log.Debug("extracted", "dest", rule.Dest, "count", len(copied))
	}
	return nil
}

// Writes the version marker and updates the Debian repository.
func (o *Orchestrator) postProcess(ctx context.Context, log *slog.Logger, plan Plan, dir, version string) error {
	if plan.Marker != "" {
		marker := filepath.Join(o.cfg.PublishedDir(), desktopTree, filepath.FromSlash(plan.Marker))
		if err := artifacts.WriteMarker(marker, version); err != nil {
			return err
		}
	}

	if plan.Debs != nil {
		out := filepath.Join(dir, filepath.FromSlash(plan.Debs.Dir))
		names, err := artifacts.Filter(out, plan.Debs.Pattern)
		if err != nil {
			return err
		}
		debs := make([]string, len(names))
		for i, n := range names {
			debs[i] = filepath.Join(out, n)
		}
		return o.publishDebs(ctx, log, debs)
	}
	return nil
}

// Ingests packages into the Debian repository between a pull and a push.
func (o *Orchestrator) publishDebs(ctx context.Context, log *slog.Logger, debs []string) error {
	repoDir := filepath.Join(o.cfg.PublishedDir(), debianTree)

	log.Info("pulling debian repository", "dir", repoDir)
	if err := o.deps.Channel.Pull(ctx, debianTree, repoDir); err != nil {
		return wrap(ErrSync, err)
	}

	repo := &debrepo.Repository{Dir: repoDir, Runner: o.deps.Backends.Host()}
	if err := repo.IngestAll(ctx, debs); err != nil {
		return err
	}

	log.Info("pushing debian repository", "packages", len(debs))
	if err := o.deps.Channel.Push(ctx, repoDir, debianTree); err != nil {
		return wrap(ErrSync, err)
	}
	return nil
}

// Removes any stale directory and recreates it empty.
func freshDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, paths.DefaultDirMode)
}

// Removes a build directory, unless the build failed and failed
// directories are kept for inspection.
func (o *Orchestrator) removeDir(log *slog.Logger, dir string, failed bool) {
	if failed && o.cfg.KeepFailedWorkdirs {
		log.Warn("keeping failed build directory", "dir", dir)
		return
	}
	if err := os.RemoveAll(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("removing build directory", "dir", dir, "error", err)
	}
}
