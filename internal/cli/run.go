package cli

import "context"

// Represents the 'shipyard run' command.
type RunCmd struct {
	Flags releaseFlags `embed:""`
}

// Executes the run command.
//
// Runs one release in the foreground. Cancelling the context (e.g. via
// SIGINT or SIGTERM) stops the build in progress and nothing is published.
func (c *RunCmd) Run(ctx context.Context) error {
	cfg, err := c.Flags.config()
	if err != nil {
		return err
	}

	o, err := newOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}

	return o.Start(ctx)
}
