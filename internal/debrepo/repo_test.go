package debrepo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

type recordingRunner struct {
	calls  [][]string
	failAt int
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) error {
	r.calls = append(r.calls, append([]string{name}, args...))
	if r.failAt > 0 && len(r.calls) == r.failAt {
		return errors.New("reprepro: exit status 255")
	}
	return nil
}

const distributions = `Origin: element.io
Label: element.io
Codename: buster
Architectures: amd64
Components: main

Origin: element.io
Codename:   bullseye
Components: main
SignWith: default
`

func newRepo(t *testing.T, conf string) (*Repository, *recordingRunner) {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "conf"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "conf", "distributions"), []byte(conf), 0644); err != nil {
		t.Fatal(err)
	}
	r := &recordingRunner{}
	return &Repository{Dir: dir, Runner: r}, r
}

func TestTargets(t *testing.T) {
	repo, _ := newRepo(t, distributions)

	got, err := repo.Targets()
	if err != nil {
		t.Fatalf("Targets() error = %v", err)
	}
	if want := []string{"buster", "bullseye"}; !slices.Equal(got, want) {
		t.Fatalf("Targets() = %q, want %q", got, want)
	}
}

func TestTargetsMissingConf(t *testing.T) {
	repo := &Repository{Dir: t.TempDir()}
	if _, err := repo.Targets(); !errors.Is(err, ErrDistributions) {
		t.Fatalf("Targets() error = %v, want ErrDistributions", err)
	}
}

func TestIngestAllPerTarget(t *testing.T) {
	repo, runner := newRepo(t, distributions)

	if err := repo.IngestAll(context.Background(), []string{"/dist/element_1.6.0_amd64.deb"}); err != nil {
		t.Fatalf("IngestAll() error = %v", err)
	}

	want := [][]string{
		{"reprepro", "-b", repo.Dir, "includedeb", "buster", "/dist/element_1.6.0_amd64.deb"},
		{"reprepro", "-b", repo.Dir, "includedeb", "bullseye", "/dist/element_1.6.0_amd64.deb"},
	}
	if !slices.EqualFunc(runner.calls, want, slices.Equal) {
		t.Fatalf("calls = %q, want %q", runner.calls, want)
	}
}

func TestIngestAllNTimesM(t *testing.T) {
	repo, runner := newRepo(t, distributions)

	debs := []string{"a.deb", "b.deb", "c.deb"}
	if err := repo.IngestAll(context.Background(), debs); err != nil {
		t.Fatalf("IngestAll() error = %v", err)
	}
	if len(runner.calls) != 6 {
		t.Fatalf("ran %d ingestions, want 6", len(runner.calls))
	}
}

func TestIngestAllStopsAtFirstFailure(t *testing.T) {
	repo, runner := newRepo(t, distributions)
	runner.failAt = 2

	err := repo.IngestAll(context.Background(), []string{"a.deb", "b.deb"})
	if !errors.Is(err, ErrIngest) {
		t.Fatalf("IngestAll() error = %v, want ErrIngest", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("ran %d ingestions, want 2", len(runner.calls))
	}
}
