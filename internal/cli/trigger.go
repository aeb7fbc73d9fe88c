package cli

import (
	"context"
	"fmt"

	"github.com/cruciblehq/shipyard/internal/server"
)

// Represents the 'shipyard trigger' command.
type TriggerCmd struct{}

// Executes the trigger command.
func (c *TriggerCmd) Run(ctx context.Context) error {
	res, err := server.NewClient(RootCmd.Socket).Trigger(ctx)
	if err != nil {
		return err
	}

	fmt.Println(res.Message)
	return nil
}
