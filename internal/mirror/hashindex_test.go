package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(path, hash string) *FileRecord {
	return &FileRecord{Path: path, Hash: hash, Size: 1, Class: ClassifyPath(path)}
}

func TestBuildIndexGroupsByHash(t *testing.T) {
	records := []*FileRecord{
		rec("/a/one.jpg", "h1"),
		rec("/b/two.jpg", "h1"),
		rec("/c/three.jpg", "h2"),
		rec("/d/nohash.bin", ""),
	}

	idx := BuildIndex(records)

	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, 1, idx.Unhashable())
	assert.Len(t, idx.Lookup("h1"), 2)
	assert.Len(t, idx.Lookup("h2"), 1)
	assert.Nil(t, idx.Lookup("missing"))
	assert.Nil(t, idx.Lookup(""), "empty hash never matches")
	assert.True(t, idx.Contains("h1"))
	assert.False(t, idx.Contains(""))
}

func TestIndexDuplicates(t *testing.T) {
	idx := BuildIndex([]*FileRecord{
		rec("/a", "h1"),
		rec("/b", "h1"),
		rec("/c", "h2"),
	})

	dups := idx.Duplicates()
	require.Len(t, dups, 1)
	assert.Equal(t, "h1", dups[0])

	buckets := idx.DuplicateBuckets()
	require.Contains(t, buckets, "h1")
	assert.Len(t, buckets["h1"], 2)
	assert.NotContains(t, buckets, "h2", "single-member buckets are not duplicates")
}

func TestIndexMerge(t *testing.T) {
	idx := BuildIndex([]*FileRecord{rec("/a", "h1"), rec("/u1", "")})
	other := BuildIndex([]*FileRecord{rec("/b", "h1"), rec("/c", "h3"), rec("/u2", "")})

	idx.Merge(other)
	idx.Merge(nil)

	assert.Len(t, idx.Lookup("h1"), 2)
	assert.True(t, idx.Contains("h3"))
	assert.Equal(t, 2, idx.Unhashable())
}
