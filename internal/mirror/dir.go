package mirror

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cruciblehq/shipyard/internal/paths"
)

// Mirrors to a directory on the local filesystem, such as a mounted share.
type Dir struct {
	Root string
}

var _ Channel = (*Dir)(nil)

func (d *Dir) Pull(ctx context.Context, remote, local string) error {
	return syncTree(ctx, filepath.Join(d.Root, filepath.FromSlash(remote)), local)
}

func (d *Dir) Push(ctx context.Context, local, remote string) error {
	return syncTree(ctx, local, filepath.Join(d.Root, filepath.FromSlash(remote)))
}

// Makes dst equal to src. Files are compared by size and modification time.
func syncTree(ctx context.Context, src, dst string) error {
	slog.Info("mirroring", "from", src, "to", dst)

	srcFiles, err := walkFiles(src)
	if err != nil {
		return wrap(ErrTransfer, err)
	}
	dstFiles, err := walkFiles(dst)
	if err != nil {
		return wrap(ErrTransfer, err)
	}
	if err := os.MkdirAll(dst, paths.DefaultDirMode); err != nil {
		return wrap(ErrTransfer, err)
	}

	var copied, deleted int
	for _, rel := range sortedKeys(srcFiles) {
		if err := ctx.Err(); err != nil {
			return wrap(ErrTransfer, err)
		}
		info := srcFiles[rel]
		if have, ok := dstFiles[rel]; ok && sameFile(info, have) {
			continue
		}
		if err := copyFile(filepath.Join(src, filepath.FromSlash(rel)), filepath.Join(dst, filepath.FromSlash(rel)), info); err != nil {
			return wrap(ErrTransfer, err)
		}
		copied++
	}

	for _, rel := range sortedKeys(dstFiles) {
		if _, ok := srcFiles[rel]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(dst, filepath.FromSlash(rel))); err != nil {
			return wrap(ErrTransfer, err)
		}
		deleted++
	}
	if err := pruneEmptyDirs(dst); err != nil {
		return wrap(ErrTransfer, err)
	}

	slog.Debug("mirrored", "from", src, "to", dst, "copied", copied, "deleted", deleted)
	return nil
}

func sameFile(a, b fs.FileInfo) bool {
	return a.Size() == b.Size() && a.ModTime().Equal(b.ModTime())
}

// Copies a file and carries over its modification time.
func copyFile(src, dst string, info fs.FileInfo) error {
	if err := os.MkdirAll(filepath.Dir(dst), paths.DefaultDirMode); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, paths.DefaultFileMode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
