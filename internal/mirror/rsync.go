package mirror

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/cruciblehq/shipyard/internal/backend"
	"github.com/cruciblehq/shipyard/internal/paths"
)

// Mirrors through rsync. Root is any rsync destination, local or remote.
type Rsync struct {
	Root   string
	Runner backend.Runner
}

var _ Channel = (*Rsync)(nil)

func (r *Rsync) Pull(ctx context.Context, remote, local string) error {
	if err := os.MkdirAll(local, paths.DefaultDirMode); err != nil {
		return wrap(ErrTransfer, err)
	}
	return r.sync(ctx, r.remotePath(remote), local)
}

func (r *Rsync) Push(ctx context.Context, local, remote string) error {
	return r.sync(ctx, local, r.remotePath(remote))
}

// Trailing slashes make rsync copy directory contents, not the directory.
func (r *Rsync) sync(ctx context.Context, src, dst string) error {
	src = strings.TrimRight(src, "/") + "/"
	dst = strings.TrimRight(dst, "/") + "/"

	slog.Info("mirroring", "from", src, "to", dst)
	if err := r.Runner.Run(ctx, "rsync", "-av", "--delete", src, dst); err != nil {
		return wrap(ErrTransfer, err)
	}
	return nil
}

func (r *Rsync) remotePath(rel string) string {
	return strings.TrimRight(r.Root, "/") + "/" + strings.Trim(rel, "/")
}
