package artifacts

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/opencontainers/go-digest"

	"github.com/cruciblehq/shipyard/internal/paths"
)

// A file copied into the published tree.
type Artifact struct {
	Name   string        // File name.
	Path   string        // Destination path.
	Size   int64         // Size in bytes.
	Digest digest.Digest // sha256 of the content.
}

// Returns the names of regular files in dir matching pattern.
//
// Names are returned in directory order (sorted by name). Zero matches
// returns [ErrNoMatch].
func Filter(dir string, pattern *regexp.Regexp) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, wrap(ErrNoMatch, err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if pattern.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrNoMatch, pattern, dir)
	}
	return names, nil
}

// Copies every file in srcDir matching pattern into destDir.
//
// destDir is created if needed. Existing files with the same name are
// replaced.
func CopyMatching(srcDir string, pattern *regexp.Regexp, destDir string) ([]Artifact, error) {
	names, err := Filter(srcDir, pattern)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destDir, paths.DefaultDirMode); err != nil {
		return nil, wrap(ErrCopy, err)
	}

	out := make([]Artifact, 0, len(names))
	for _, name := range names {
		a, err := copyFile(filepath.Join(srcDir, name), filepath.Join(destDir, name))
		if err != nil {
			return nil, err
		}
		slog.Info("copied artifact", "name", a.Name, "dest", destDir, "size", a.Size, "digest", a.Digest.String())
		out = append(out, a)
	}
	return out, nil
}

// Copies src to dst and digests the content on the way.
func copyFile(src, dst string) (Artifact, error) {
	in, err := os.Open(src)
	if err != nil {
		return Artifact{}, wrap(ErrCopy, err)
	}
	defer in.Close()

	tmp := dst + ".partial"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, paths.DefaultFileMode)
	if err != nil {
		return Artifact{}, wrap(ErrCopy, err)
	}

	digester := digest.Canonical.Digester()
	n, err := io.Copy(io.MultiWriter(out, digester.Hash()), in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return Artifact{}, wrap(ErrCopy, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return Artifact{}, wrap(ErrCopy, err)
	}

	return Artifact{
		Name:   filepath.Base(dst),
		Path:   dst,
		Size:   n,
		Digest: digester.Digest(),
	}, nil
}

// Writes content to path, replacing whatever was there.
func WriteMarker(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return wrap(ErrCopy, err)
	}
	if err := os.WriteFile(path, []byte(content), paths.DefaultFileMode); err != nil {
		return wrap(ErrCopy, err)
	}
	slog.Info("wrote marker", "path", path, "content", content)
	return nil
}
