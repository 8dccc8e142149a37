package syncer

import (
	"testing"

	"github.com/poiesic/vecsync/core"
	"github.com/stretchr/testify/assert"
)

func TestReconcile(t *testing.T) {
	tests := []struct {
		name   string
		local  []string
		remote []string
		want   []string
	}{
		{"stale paths", []string{"a", "c"}, []string{"a", "b", "c"}, []string{"b"}},
		{"nothing remote", []string{"a"}, nil, nil},
		{"nothing local", nil, []string{"a", "b"}, []string{"a", "b"}},
		{"identical", []string{"a", "b"}, []string{"a", "b"}, nil},
		{"local superset", []string{"a", "b", "c"}, []string{"b"}, nil},
		{"case sensitive", []string{"README.md"}, []string{"readme.md"}, []string{"readme.md"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := core.NewPathSet(tt.local...)
			remote := core.NewPathSet(tt.remote...)

			got := Reconcile(local, remote)
			if len(tt.want) == 0 {
				assert.Empty(t, got.Sorted())
			} else {
				assert.Equal(t, tt.want, got.Sorted())
			}

			for p := range got {
				assert.False(t, local.Contains(p), "result must not intersect local")
				assert.True(t, remote.Contains(p), "result must be drawn from remote")
			}
			for p := range remote {
				assert.True(t, local.Contains(p) || got.Contains(p), "every remote path is kept or deleted")
			}
		})
	}
}

func TestBatches(t *testing.T) {
	paths := []string{"a", "b", "c", "d", "e"}

	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, batches(paths, 2))
	assert.Equal(t, [][]string{paths}, batches(paths, 10))
	assert.Len(t, batches(paths, 0), 5)
	assert.Empty(t, batches(nil, 3))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	c := DefaultConfig()
	c.Workers = 0
	assert.ErrorIs(t, c.Validate(), ErrInvalidWorkers)

	c = DefaultConfig()
	c.MaxAttempts = 0
	assert.ErrorIs(t, c.Validate(), ErrInvalidMaxAttempts)

	c = DefaultConfig()
	c.RetryDelay = -1
	assert.ErrorIs(t, c.Validate(), ErrInvalidRetryDelay)

	c = DefaultConfig()
	c.DeleteBatchSize = 0
	assert.ErrorIs(t, c.Validate(), ErrInvalidDeleteBatchSize)
}
