package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashmirror/hashmirror/internal/mirror"
)

func writeFile(t *testing.T, root string, rel string, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func paths(records []*mirror.FileRecord) []string {
	var out []string
	for _, r := range records {
		out = append(out, filepath.Base(r.Path))
	}
	return out
}

func TestLocalScanHashesFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "photo.jpg", "hello world")

	records, err := Local(context.Background(), root, Options{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", records[0].Hash)
	assert.Equal(t, int64(11), records[0].Size)
	assert.Equal(t, mirror.ClassMedia, records[0].Class)
	assert.False(t, records[0].IsRemote())
}

func TestLocalScanRecursive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "top.jpg", "a")
	writeFile(t, root, "nested/deep.jpg", "b")

	flat, err := Local(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"top.jpg"}, paths(flat))

	deep, err := Local(context.Background(), root, Options{Recursive: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"top.jpg", "deep.jpg"}, paths(deep))
}

func TestLocalScanMediaOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "song.mp3", "a")
	writeFile(t, root, "notes.txt", "b")

	records, err := Local(context.Background(), root, Options{MediaOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"song.mp3"}, paths(records))
}

func TestLocalScanExcludesSubtrees(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep/a.jpg", "a")
	writeFile(t, root, "skip/b.jpg", "b")

	exclude := mapset.NewSet(filepath.Join(root, "skip"))
	records, err := Local(context.Background(), root, Options{Recursive: true, Exclude: exclude})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg"}, paths(records))
}

func TestLocalScanHonorsIgnoreFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, IgnoreFileName, "*.raw\n")
	writeFile(t, root, "wanted.jpg", "a")
	writeFile(t, root, "unwanted.raw", "b")
	writeFile(t, root, ".DS_Store", "junk")

	records, err := Local(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"wanted.jpg"}, paths(records))
}

func TestLocalScanBadRoot(t *testing.T) {
	_, err := Local(context.Background(), filepath.Join(t.TempDir(), "absent"), Options{})
	assert.Error(t, err)
}

func TestFromSnapshotMatchesLiveFiltering(t *testing.T) {
	snap := mirror.NewSnapshot("root", []*mirror.FileRecord{
		{Path: "/root/a.jpg", Hash: "h1", RemoteID: "id1", Class: mirror.ClassMedia},
		{Path: "/root/b.txt", Hash: "h2", RemoteID: "id2", Class: mirror.ClassOther},
	})

	all := FromSnapshot(snap, Options{})
	assert.Len(t, all, 2)

	media := FromSnapshot(snap, Options{MediaOnly: true})
	require.Len(t, media, 1)
	assert.Equal(t, "/root/a.jpg", media[0].Path)
}
