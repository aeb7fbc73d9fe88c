package mirror

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cruciblehq/shipyard/internal/config"
)

type recordingRunner struct {
	calls [][]string
	err   error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) error {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.err
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	files, err := walkFiles(root)
	require.NoError(t, err)

	out := make(map[string]string, len(files))
	for rel := range files {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		require.NoError(t, err)
		out[rel] = string(data)
	}
	return out
}

func TestNewSelectsChannel(t *testing.T) {
	ctx := context.Background()
	runner := &recordingRunner{}

	tests := []struct {
		root string
		want Channel
	}{
		{"file:///srv/packages", &Dir{Root: "/srv/packages"}},
		{"/srv/packages", &Dir{Root: "/srv/packages"}},
		{"packages@mirror:/srv/packages", &Rsync{Root: "packages@mirror:/srv/packages", Runner: runner}},
	}
	for _, tt := range tests {
		got, err := New(ctx, config.MirrorConfig{Root: tt.root}, runner)
		require.NoError(t, err, tt.root)
		assert.Equal(t, tt.want, got, tt.root)
	}

	_, err := New(ctx, config.MirrorConfig{}, runner)
	assert.ErrorIs(t, err, ErrRoot)
}

func TestRsyncCommands(t *testing.T) {
	runner := &recordingRunner{}
	r := &Rsync{Root: "packages@mirror:/srv/packages/", Runner: runner}
	local := filepath.Join(t.TempDir(), "desktop")
	ctx := context.Background()

	require.NoError(t, r.Pull(ctx, "desktop", local))
	require.NoError(t, r.Push(ctx, local, "desktop"))

	assert.Equal(t, [][]string{
		{"rsync", "-av", "--delete", "packages@mirror:/srv/packages/desktop/", local + "/"},
		{"rsync", "-av", "--delete", local + "/", "packages@mirror:/srv/packages/desktop/"},
	}, runner.calls)
	assert.DirExists(t, local)
}

func TestRsyncFailure(t *testing.T) {
	runner := &recordingRunner{err: errors.New("connection refused")}
	r := &Rsync{Root: "mirror:/srv", Runner: runner}

	err := r.Push(context.Background(), t.TempDir(), "debian")
	assert.ErrorIs(t, err, ErrTransfer)
}

func TestDirMirrorDeletesExtras(t *testing.T) {
	root := t.TempDir()
	local := filepath.Join(t.TempDir(), "desktop")
	d := &Dir{Root: root}
	ctx := context.Background()

	writeTree(t, filepath.Join(root, "desktop"), map[string]string{
		"install/macos/Element-1.5.0.dmg": "old",
		"update/macos/latest":             "1.5.0",
	})

	require.NoError(t, d.Pull(ctx, "desktop", local))
	assert.Equal(t, map[string]string{
		"install/macos/Element-1.5.0.dmg": "old",
		"update/macos/latest":             "1.5.0",
	}, readTree(t, local))

	require.NoError(t, os.Remove(filepath.Join(local, "install/macos/Element-1.5.0.dmg")))
	writeTree(t, local, map[string]string{
		"install/macos/Element-1.6.0.dmg": "new",
		"update/macos/latest":             "1.6.0",
	})

	require.NoError(t, d.Push(ctx, local, "desktop"))
	assert.Equal(t, map[string]string{
		"install/macos/Element-1.6.0.dmg": "new",
		"update/macos/latest":             "1.6.0",
	}, readTree(t, filepath.Join(root, "desktop")))
}

func TestDirPullRemovesLocalExtrasAndEmptyDirs(t *testing.T) {
	root := t.TempDir()
	local := t.TempDir()
	writeTree(t, filepath.Join(root, "debian"), map[string]string{"conf/distributions": "Codename: buster\n"})
	writeTree(t, local, map[string]string{"pool/main/e/element.deb": "stale"})

	require.NoError(t, (&Dir{Root: root}).Pull(context.Background(), "debian", local))

	assert.Equal(t, map[string]string{"conf/distributions": "Codename: buster\n"}, readTree(t, local))
	assert.NoDirExists(t, filepath.Join(local, "pool"))
}

func TestDirPullMissingRemoteEmptiesLocal(t *testing.T) {
	local := t.TempDir()
	writeTree(t, local, map[string]string{"a": "x"})

	require.NoError(t, (&Dir{Root: t.TempDir()}).Pull(context.Background(), "desktop", local))
	assert.Empty(t, readTree(t, local))
}

func TestDirSkipsUnchanged(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{"a": "same"})
	require.NoError(t, syncTree(context.Background(), src, dst))

	// A file with equal size and mtime is not rewritten.
	p := filepath.Join(dst, "a")
	mtime := time.Now().Add(-time.Hour)
	require.NoError(t, os.WriteFile(p, []byte("diff"), 0644))
	info, err := os.Stat(filepath.Join(src, "a"))
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(p, mtime, info.ModTime()))

	require.NoError(t, syncTree(context.Background(), src, dst))
	assert.Equal(t, "diff", readTree(t, dst)["a"])
}

func TestParseS3Root(t *testing.T) {
	bucket, prefix, err := parseS3Root("s3://packages/element.io/")
	require.NoError(t, err)
	assert.Equal(t, "packages", bucket)
	assert.Equal(t, "element.io", prefix)

	_, _, err = parseS3Root("s3:///nobucket")
	assert.ErrorIs(t, err, ErrRoot)
}

func TestS3PushMirrors(t *testing.T) {
	fake := newFakeS3()
	fake.objects["element.io/desktop/install/macos/Element-1.5.0.dmg"] = []byte("old")
	fake.objects["element.io/desktop/update/macos/latest"] = []byte("1.6.0")
	fake.objects["element.io/debian/conf/distributions"] = []byte("keep")

	local := t.TempDir()
	writeTree(t, local, map[string]string{
		"install/macos/Element-1.6.0.dmg": "new",
		"update/macos/latest":             "1.6.0",
	})

	c := &S3{client: fake, Bucket: "packages", Prefix: "element.io"}
	require.NoError(t, c.Push(context.Background(), local, "desktop"))

	assert.Equal(t, []string{"element.io/desktop/install/macos/Element-1.6.0.dmg"}, fake.puts, "unchanged latest is not uploaded")
	assert.Equal(t, [][]string{{"element.io/desktop/install/macos/Element-1.5.0.dmg"}}, fake.deletes)
	assert.Contains(t, fake.objects, "element.io/debian/conf/distributions", "other prefixes untouched")
	assert.Len(t, fake.objects, 3)
}

func TestS3PullMirrors(t *testing.T) {
	fake := newFakeS3()
	fake.objects["element.io/debian/conf/distributions"] = []byte("Codename: buster\n")
	fake.objects["element.io/debian/db/packages.db"] = []byte("db")
	fake.objects["element.io/debian/pool/a.deb"] = []byte("a")

	local := t.TempDir()
	writeTree(t, local, map[string]string{
		"db/packages.db": "db",
		"stale.txt":      "x",
	})

	c := &S3{client: fake, Bucket: "packages", Prefix: "element.io"}
	require.NoError(t, c.Pull(context.Background(), "debian", local))

	assert.Equal(t, map[string]string{
		"conf/distributions": "Codename: buster\n",
		"db/packages.db":     "db",
		"pool/a.deb":         "a",
	}, readTree(t, local))
	assert.NotContains(t, fake.gets, "element.io/debian/db/packages.db", "unchanged file is not downloaded")
}

func TestS3PullRejectsEscapingKeys(t *testing.T) {
	for _, key := range []string{
		"element.io/debian/../../evil",
		"element.io/debian//etc/passwd",
		"element.io/debian/pool/../../../evil",
	} {
		t.Run(key, func(t *testing.T) {
			fake := newFakeS3()
			fake.objects["element.io/debian/pool/a.deb"] = []byte("a")
			fake.objects[key] = []byte("x")

			parent := t.TempDir()
			local := filepath.Join(parent, "mirror")
			writeTree(t, local, map[string]string{"keep.txt": "k"})

			c := &S3{client: fake, Bucket: "packages", Prefix: "element.io"}
			err := c.Pull(context.Background(), "debian", local)
			assert.ErrorIs(t, err, ErrTransfer)

			assert.Empty(t, fake.gets, "nothing is downloaded")
			assert.Equal(t, map[string]string{"keep.txt": "k"}, readTree(t, local))
			_, statErr := os.Stat(filepath.Join(parent, "evil"))
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestS3DeleteBatches(t *testing.T) {
	fake := newFakeS3()
	fake.pageSize = 500
	for i := range maxDeleteBatch + 5 {
		fake.objects["p/desktop/"+strconv.Itoa(i)] = []byte("x")
	}

	c := &S3{client: fake, Bucket: "b", Prefix: "p"}
	require.NoError(t, c.Push(context.Background(), t.TempDir(), "desktop"))

	require.Len(t, fake.deletes, 2)
	assert.Len(t, fake.deletes[0], maxDeleteBatch)
	assert.Len(t, fake.deletes[1], 5)
	assert.Empty(t, fake.objects)
}
