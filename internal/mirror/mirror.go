package mirror

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/cruciblehq/shipyard/internal/backend"
	"github.com/cruciblehq/shipyard/internal/config"
)

// Mirrors directory trees to and from a publishing root.
type Channel interface {

	// Makes local equal to remote, deleting local extras.
	Pull(ctx context.Context, remote, local string) error

	// Makes remote equal to local, deleting remote extras.
	Push(ctx context.Context, local, remote string) error
}

// Returns the channel for the configured root.
//
// Rsync transfers run through runner.
func New(ctx context.Context, cfg config.MirrorConfig, runner backend.Runner) (Channel, error) {
	root := cfg.Root
	switch {
	case root == "":
		return nil, ErrRoot
	case strings.HasPrefix(root, "s3://"):
		return NewS3(ctx, cfg)
	case strings.HasPrefix(root, "file://"):
		return &Dir{Root: strings.TrimPrefix(root, "file://")}, nil
	case filepath.IsAbs(root):
		return &Dir{Root: root}, nil
	default:
		return &Rsync{Root: root, Runner: runner}, nil
	}
}
