package cli

import (
	"context"

	"github.com/cruciblehq/shipyard/internal/backend"
	"github.com/cruciblehq/shipyard/internal/config"
	"github.com/cruciblehq/shipyard/internal/credentials"
	"github.com/cruciblehq/shipyard/internal/mirror"
	"github.com/cruciblehq/shipyard/internal/release"
	"github.com/cruciblehq/shipyard/internal/source"
)

// Flags shared by commands that run releases. Set flags override the
// configuration file.
type releaseFlags struct {
	Branch     string   `short:"b" help:"Source branch or tag to build." placeholder:"REF"`
	Platform   []string `short:"p" help:"Platform to build (win64, win32, mac, linux). Repeatable; order is kept." placeholder:"NAME"`
	Mirror     string   `short:"m" help:"Mirror root (rsync prefix, s3://bucket/prefix, or directory)." placeholder:"ROOT"`
	KeepFailed bool     `help:"Leave a failed platform's build directory in place."`
}

// Loads and validates the configuration with flag overrides applied.
func (f *releaseFlags) config() (*config.Config, error) {
	cfg, err := config.Load(RootCmd.Config)
	if err != nil {
		return nil, err
	}

	if f.Branch != "" {
		cfg.Branch = f.Branch
	}
	if len(f.Platform) > 0 {
		cfg.Platforms = make([]config.Platform, 0, len(f.Platform))
		for _, name := range f.Platform {
			cfg.Platforms = append(cfg.Platforms, config.Platform(name))
		}
	}
	if f.Mirror != "" {
		cfg.Mirror.Root = f.Mirror
	}
	if f.KeepFailed {
		cfg.KeepFailedWorkdirs = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Wires an orchestrator for cfg.
func newOrchestrator(ctx context.Context, cfg *config.Config) (*release.Orchestrator, error) {
	creds, err := credentials.New(ctx, cfg.Credentials)
	if err != nil {
		return nil, err
	}

	channel, err := mirror.New(ctx, cfg.Mirror, backend.NewLocal())
	if err != nil {
		return nil, err
	}

	return release.New(cfg, release.Deps{
		Credentials: creds,
		Source:      &source.Git{URL: cfg.Source.URL, Depth: cfg.Source.Depth},
		Channel:     channel,
		Backends:    release.NewBackends(cfg),
	}), nil
}
