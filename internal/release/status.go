package release

import (
	"fmt"
	"time"

	"github.com/cruciblehq/shipyard/internal/config"
)

// Phase of a run.
type State int

const (
	Idle State = iota
	Pulling
	Building
	Publishing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pulling:
		return "pulling"
	case Building:
		return "building"
	case Publishing:
		return "publishing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome of a finished run.
type RunStatus struct {
	ID        string            `json:"id"`
	Branch    string            `json:"branch"`
	Started   time.Time         `json:"started"`
	Finished  time.Time         `json:"finished"`
	Built     []config.Platform `json:"built"`           // Platforms whose pipeline completed.
	Published bool              `json:"published"`       // Whether the tree was pushed.
	Error     string            `json:"error,omitempty"` // Failure, if any.
}

// Snapshot of the orchestrator.
type Status struct {
	State    State           `json:"-"`
	Phase    string          `json:"phase"`
	Platform config.Platform `json:"platform,omitempty"` // Platform being built.
	Runs     int             `json:"runs"`               // Runs started since process start.
	LastRun  *RunStatus      `json:"last_run,omitempty"`
}

// Reports whether a run is in progress.
func (s Status) Building() bool {
	return s.State != Idle
}
