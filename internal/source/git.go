package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/cruciblehq/shipyard/internal/backend"
	"github.com/cruciblehq/shipyard/internal/paths"
)

// Clones source trees.
type Provider interface {
	Clone(ctx context.Context, ref, dir string) error
}

// A git repository reachable by URL.
type Git struct {
	URL   string // Clone URL or local path.
	Depth int    // History depth; 0 fetches everything.
}

var _ Provider = (*Git)(nil)

// Clones ref into dir, which must be empty or absent.
//
// The ref is tried as a branch first and then as a tag.
func (g *Git) Clone(ctx context.Context, ref, dir string) error {
	var last error
	for _, name := range candidateRefs(ref) {
		err := g.cloneRef(ctx, name, dir)
		if err == nil {
			slog.Info("cloned source", "url", g.URL, "ref", name.String(), "dir", dir)
			return nil
		}
		if !isMissingRef(err) {
			return wrap(ErrClone, err)
		}
		slog.Debug("ref not in remote", "ref", name.String())
		last = err

		// A failed attempt leaves a partial .git behind.
		if err := resetDir(dir); err != nil {
			return wrap(ErrClone, err)
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrRefNotFound, ref, last)
}

func (g *Git) cloneRef(ctx context.Context, name plumbing.ReferenceName, dir string) error {
	progress := backend.NewLineLogger("git")
	defer progress.Flush()

	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           g.URL,
		ReferenceName: name,
		SingleBranch:  true,
		Depth:         g.Depth,
		Progress:      progress,
	})
	return err
}

// Returns the fully qualified names a short ref may resolve to.
func candidateRefs(ref string) []plumbing.ReferenceName {
	name := plumbing.ReferenceName(ref)
	if name.IsBranch() || name.IsTag() {
		return []plumbing.ReferenceName{name}
	}
	return []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(ref),
		plumbing.NewTagReferenceName(ref),
	}
}

func isMissingRef(err error) bool {
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return true
	}
	var noMatch git.NoMatchingRefSpecError
	return errors.As(err, &noMatch)
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, paths.DefaultDirMode)
}
