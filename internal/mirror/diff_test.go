package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffReturnsOnlyAbsentHashes(t *testing.T) {
	source := []*FileRecord{
		rec("/src/a.jpg", "h1"),
		rec("/src/b.jpg", "h2"),
		rec("/src/c.jpg", "h3"),
	}
	dest := BuildIndex([]*FileRecord{
		rec("/dst/x.jpg", "h2"),
	})

	missing := Diff(source, dest)

	require.Len(t, missing, 2)
	// source order is preserved
	assert.Equal(t, "/src/a.jpg", missing[0].Path)
	assert.Equal(t, "/src/c.jpg", missing[1].Path)
}

func TestDiffIsIdempotent(t *testing.T) {
	source := []*FileRecord{rec("/src/a", "h1"), rec("/src/b", "h2")}
	dest := BuildIndex(nil)

	missing := Diff(source, dest)
	require.Len(t, missing, 2)

	// after copying everything over, a re-run finds nothing
	dest = BuildIndex([]*FileRecord{rec("/dst/a", "h1"), rec("/dst/b", "h2")})
	assert.Empty(t, Diff(source, dest))
}

func TestDiffAlwaysIncludesUnhashable(t *testing.T) {
	unhashable := rec("/src/weird.bin", "")
	source := []*FileRecord{unhashable}
	dest := BuildIndex([]*FileRecord{rec("/dst/weird.bin", "")})

	// an unhashable file is copied every time, even if an identical one is
	// already at the destination; that duplicate accumulation is the
	// documented behavior
	missing := Diff(source, dest)
	require.Len(t, missing, 1)
	assert.Same(t, unhashable, missing[0])

	assert.Len(t, Diff(source, dest), 1, "re-running still includes it")
}
