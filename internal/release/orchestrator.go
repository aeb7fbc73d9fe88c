package release

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cruciblehq/shipyard/internal/config"
	"github.com/cruciblehq/shipyard/internal/credentials"
	"github.com/cruciblehq/shipyard/internal/mirror"
	"github.com/cruciblehq/shipyard/internal/source"
)

// Remote subtrees, relative to the mirror root.
const (
	desktopTree = "desktop"
	debianTree  = "debian"
)

// Collaborators of an [Orchestrator].
type Deps struct {
	Credentials credentials.Source // Signing passphrase.
	Source      source.Provider    // Clones the application source.
	Channel     mirror.Channel     // Moves the published tree and Debian repository.
	Backends    Backends           // Runs build commands.
}

// Runs releases. Safe for concurrent use; at most one run is active.
type Orchestrator struct {
	cfg  *config.Config
	deps Deps

	running atomic.Bool

	mu         sync.Mutex
	credential credentials.Credential
	state      State
	platform   config.Platform
	runs       int
	last       *RunStatus
}

// Creates an orchestrator for cfg.
func New(cfg *config.Config, deps Deps) *Orchestrator {
	return &Orchestrator{cfg: cfg, deps: deps}
}

// One release attempt.
type run struct {
	id     string
	log    *slog.Logger
	status RunStatus
}

// Runs one release.
//
// A missing signing credential fails before anything else happens.
// Start returns nil without doing anything if a run is already active or
// no platforms are configured. Otherwise it pulls the published tree,
// builds every platform in order and pushes the tree back. The first
// platform failure ends the run without pushing.
func (o *Orchestrator) Start(ctx context.Context) error {
	cred, err := o.acquireCredential(ctx)
	if err != nil {
		slog.Error("release aborted", "error", err)
		return err
	}

	if len(o.cfg.Platforms) == 0 {
		slog.Info("no platforms configured")
		return nil
	}
	if !o.running.CompareAndSwap(false, true) {
		slog.Info("release already running")
		return nil
	}
	defer o.running.Store(false)

	r := o.newRun()
	defer o.finish(r)

	err = o.release(ctx, r, cred)
	if err != nil {
		r.status.Error = err.Error()
		r.log.Error("release failed", "error", err)
		return err
	}
	r.log.Info("release published", "platforms", r.status.Built)
	return nil
}

func (o *Orchestrator) release(ctx context.Context, r *run, cred credentials.Credential) error {
	published := filepath.Join(o.cfg.PublishedDir(), desktopTree)

	o.setState(Pulling, "")
	r.log.Info("pulling published tree", "dir", published)
	if err := o.deps.Channel.Pull(ctx, desktopTree, published); err != nil {
		return wrap(ErrSync, err)
	}

	for _, p := range o.cfg.Platforms {
		o.setState(Building, p)
		log := r.log.With("platform", p.String())

		log.Info("build started")
		if err := o.buildPlatform(ctx, log, p, cred); err != nil {
			log.Error("build failed", "error", err)
			return wrapf(ErrPlatform, "%s: %w", p, err)
		}
		log.Info("build succeeded")
		r.status.Built = append(r.status.Built, p)
	}

	o.setState(Publishing, "")
	r.log.Info("publishing", "dir", published)
	if err := o.deps.Channel.Push(ctx, published, desktopTree); err != nil {
		return wrap(ErrSync, err)
	}
	r.status.Published = true
	return nil
}

// Returns the signing credential, acquiring it on first use.
func (o *Orchestrator) acquireCredential(ctx context.Context) (credentials.Credential, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.credential.IsZero() {
		return o.credential, nil
	}
	c, err := o.deps.Credentials.Acquire(ctx)
	if err != nil {
		return credentials.Credential{}, wrap(ErrCredential, err)
	}
	o.credential = c
	return c, nil
}

func (o *Orchestrator) newRun() *run {
	id := uuid.NewString()

	o.mu.Lock()
	o.runs++
	o.state = Pulling
	o.mu.Unlock()

	r := &run{
		id:  id,
		log: slog.With("run", id),
		status: RunStatus{
			ID:      id,
			Branch:  o.cfg.Branch,
			Started: time.Now(),
		},
	}
	r.log.Info("release started", "branch", o.cfg.Branch, "platforms", o.cfg.Platforms)
	return r
}

func (o *Orchestrator) finish(r *run) {
	r.status.Finished = time.Now()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Idle
	o.platform = ""
	last := r.status
	o.last = &last
}

func (o *Orchestrator) setState(s State, p config.Platform) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = s
	o.platform = p
}

// Returns a snapshot of the current state and the last finished run.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Status{
		State:    o.state,
		Phase:    o.state.String(),
		Platform: o.platform,
		Runs:     o.runs,
	}
	if o.last != nil {
		last := *o.last
		s.LastRun = &last
	}
	return s
}
