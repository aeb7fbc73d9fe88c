package artifacts

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"testing"

	"github.com/opencontainers/go-digest"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFilter(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.dmg": "x", "b.txt": "y"})

	got, err := Filter(dir, regexp.MustCompile(`\.dmg$`))
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if !slices.Equal(got, []string{"a.dmg"}) {
		t.Fatalf("Filter() = %q, want [a.dmg]", got)
	}

	if _, err := Filter(dir, regexp.MustCompile(`\.appimage$`)); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("Filter() error = %v, want ErrNoMatch", err)
	}
}

func TestFilterOrderAndDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"RELEASES": "", "b.nupkg": "", "a.nupkg": ""})
	if err := os.Mkdir(filepath.Join(dir, "c.nupkg"), 0755); err != nil {
		t.Fatal(err)
	}

	got, err := Filter(dir, regexp.MustCompile(`\.nupkg$`))
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if !slices.Equal(got, []string{"a.nupkg", "b.nupkg"}) {
		t.Fatalf("Filter() = %q, want [a.nupkg b.nupkg]", got)
	}

	got, err = Filter(dir, regexp.MustCompile(`^RELEASES$`))
	if err != nil || !slices.Equal(got, []string{"RELEASES"}) {
		t.Fatalf("Filter(RELEASES) = %q, %v", got, err)
	}
}

func TestFilterMissingDir(t *testing.T) {
	_, err := Filter(filepath.Join(t.TempDir(), "dist"), regexp.MustCompile(`.`))
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("Filter() error = %v, want ErrNoMatch", err)
	}
}

func TestCopyMatching(t *testing.T) {
	src := t.TempDir()
	dest := filepath.Join(t.TempDir(), "install", "macos")
	writeFiles(t, src, map[string]string{"Element-1.6.0.dmg": "image", "Element-1.6.0-mac.zip": "zip"})

	got, err := CopyMatching(src, regexp.MustCompile(`\.dmg$`), dest)
	if err != nil {
		t.Fatalf("CopyMatching() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("copied %d artifacts, want 1", len(got))
	}

	a := got[0]
	if a.Name != "Element-1.6.0.dmg" || a.Size != 5 {
		t.Fatalf("artifact = %+v", a)
	}
	if a.Digest != digest.FromString("image") {
		t.Fatalf("Digest = %s, want %s", a.Digest, digest.FromString("image"))
	}

	data, err := os.ReadFile(filepath.Join(dest, "Element-1.6.0.dmg"))
	if err != nil || string(data) != "image" {
		t.Fatalf("copied content = %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(dest, "Element-1.6.0-mac.zip")); !os.IsNotExist(err) {
		t.Fatal("unmatched file was copied")
	}
}

func TestCopyMatchingNoMatchCopiesNothing(t *testing.T) {
	src := t.TempDir()
	dest := filepath.Join(t.TempDir(), "out")
	writeFiles(t, src, map[string]string{"b.txt": ""})

	if _, err := CopyMatching(src, regexp.MustCompile(`\.deb$`), dest); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("CopyMatching() error = %v, want ErrNoMatch", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatal("destination created on empty match")
	}
}

func TestWriteMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update", "macos", "latest")

	if err := WriteMarker(path, "1.5.0"); err != nil {
		t.Fatal(err)
	}
	if err := WriteMarker(path, "1.6.0"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "1.6.0" {
		t.Fatalf("marker = %q, want 1.6.0", data)
	}
}
