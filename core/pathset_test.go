package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathSet_Difference(t *testing.T) {
	remote := NewPathSet("a", "b", "c")
	local := NewPathSet("a", "c", "d")

	diff := remote.Difference(local)
	assert.Equal(t, []string{"b"}, diff.Sorted())

	// Inputs are not modified
	assert.Equal(t, 3, remote.Len())
	assert.Equal(t, 3, local.Len())
}

func TestPathSet_DuplicatesCollapse(t *testing.T) {
	s := NewPathSet("a", "a", "b")
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("c"))
}

func TestPathSetFromFiles(t *testing.T) {
	files := []LocalFile{
		NewLocalFile("z.go", "/r/z.go", 1),
		NewLocalFile("a/b.go", "/r/a/b.go", 1),
	}
	s := PathSetFromFiles(files)
	assert.Equal(t, []string{"a/b.go", "z.go"}, s.Sorted())
}

func TestPathSet_EmptySorted(t *testing.T) {
	assert.Empty(t, NewPathSet().Sorted())
}
