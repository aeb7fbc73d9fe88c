package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cruciblehq/shipyard/internal/protocol"
	"github.com/cruciblehq/shipyard/internal/server"
)

// Represents the 'shipyard status' command.
type StatusCmd struct{}

// Executes the status command.
func (c *StatusCmd) Run(ctx context.Context) error {
	st, err := server.NewClient(RootCmd.Socket).Status(ctx)
	if err != nil {
		return err
	}

	printStatus(os.Stdout, st)
	return nil
}

// Writes a human-readable status report.
func printStatus(w io.Writer, st *protocol.StatusResult) {
	fmt.Fprintf(w, "version:  %s\n", st.Version)
	fmt.Fprintf(w, "pid:      %d\n", st.Pid)
	fmt.Fprintf(w, "uptime:   %s\n", st.Uptime)

	phase := st.Phase
	if st.Platform != "" {
		phase += " " + st.Platform
	}
	fmt.Fprintf(w, "state:    %s\n", phase)
	fmt.Fprintf(w, "runs:     %d\n", st.Runs)

	if st.NextRun != nil {
		fmt.Fprintf(w, "next run: %s\n", st.NextRun.Format(time.RFC3339))
	}

	last := st.LastRun
	if last == nil {
		return
	}

	outcome := "published"
	if !last.Published {
		outcome = "failed: " + last.Error
	}
	built := make([]string, len(last.Built))
	for i, p := range last.Built {
		built[i] = p.String()
	}

	fmt.Fprintf(w, "last run: %s (%s)\n", last.ID, last.Branch)
	fmt.Fprintf(w, "  finished: %s\n", last.Finished.Format(time.RFC3339))
	fmt.Fprintf(w, "  built:    %s\n", strings.Join(built, ", "))
	fmt.Fprintf(w, "  outcome:  %s\n", outcome)
}
