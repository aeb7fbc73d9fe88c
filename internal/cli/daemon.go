package cli

import (
	"context"
	"log/slog"

	"github.com/cruciblehq/shipyard/internal/config"
	"github.com/cruciblehq/shipyard/internal/server"
)

// Represents the 'shipyard daemon' command.
type DaemonCmd struct {
	Flags releaseFlags `embed:""`
}

// Executes the daemon command.
//
// Starts the server on a Unix domain socket and blocks until the context
// is cancelled (e.g. via SIGINT or SIGTERM) or a shutdown command arrives.
func (c *DaemonCmd) Run(ctx context.Context) error {
	cfg, err := c.Flags.config()
	if err != nil {
		return err
	}

	o, err := newOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}

	srvCfg := server.Config{SocketPath: RootCmd.Socket}
	if cfg.Schedule.At != "" {
		at, err := config.ParseClock(cfg.Schedule.At)
		if err != nil {
			return err
		}
		srvCfg.Scheduled = true
		srvCfg.Schedule = at
	}

	srv := server.New(o, srvCfg)
	if err := srv.Start(); err != nil {
		return err
	}

	slog.Info("shipyard is running", "branch", cfg.Branch, "platforms", cfg.Platforms)

	select {
	case <-ctx.Done():
	case <-waitChan(srv):
	}

	slog.Info("shutting down")
	return srv.Stop()
}

// Returns a channel closed when srv stops.
func waitChan(srv *server.Server) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		srv.Wait()
		close(ch)
	}()
	return ch
}
