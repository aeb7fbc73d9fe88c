package debrepo

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cruciblehq/shipyard/internal/backend"
)

// A reprepro repository directory.
type Repository struct {
	Dir    string         // Repository base directory.
	Runner backend.Runner // Runs reprepro.
}

// Returns the Codename of every distribution, in file order.
func (r *Repository) Targets() ([]string, error) {
	f, err := os.Open(filepath.Join(r.Dir, "conf", "distributions"))
	if err != nil {
		return nil, wrap(ErrDistributions, err)
	}
	defer f.Close()

	var targets []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		key, value, ok := strings.Cut(s.Text(), ":")
		if !ok || strings.TrimSpace(key) != "Codename" {
			continue
		}
		if v := strings.TrimSpace(value); v != "" {
			targets = append(targets, v)
		}
	}
	if err := s.Err(); err != nil {
		return nil, wrap(ErrDistributions, err)
	}
	return targets, nil
}

// Adds one package to one distribution.
func (r *Repository) Ingest(ctx context.Context, target, deb string) error {
	slog.Info("ingesting package", "package", filepath.Base(deb), "target", target)
	if err := r.Runner.Run(ctx, "reprepro", "-b", r.Dir, "includedeb", target, deb); err != nil {
		return fmt.Errorf("%w: %s into %s: %w", ErrIngest, filepath.Base(deb), target, err)
	}
	return nil
}

// Adds every package to every distribution, stopping at the first failure.
func (r *Repository) IngestAll(ctx context.Context, debs []string) error {
	targets, err := r.Targets()
	if err != nil {
		return err
	}
	for _, deb := range debs {
		for _, target := range targets {
			if err := r.Ingest(ctx, target, deb); err != nil {
				return err
			}
		}
	}
	return nil
}
