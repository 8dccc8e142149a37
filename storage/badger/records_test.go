package badger

import (
	"context"
	"testing"

	"github.com/poiesic/vecsync/core"
	"github.com/poiesic/vecsync/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) *RecordRepository {
	t.Helper()
	repo, backend, err := NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})
	return repo
}

func newRecord(path, content string, vector []float32) *core.Record {
	return &core.Record{
		FilePath:  path,
		Content:   content,
		Embedding: vector,
		Metadata: core.Metadata{
			FileExtension: ".go",
			FileSizeBytes: int64(len(content)),
		},
	}
}

func TestRecordRepository_UpsertAndGet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	rec := newRecord("pkg/a.go", "package a", []float32{0.1, 0.2})
	require.NoError(t, repo.UpsertRecord(ctx, rec))

	got, err := repo.GetRecord(ctx, "pkg/a.go")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestRecordRepository_UpsertReplaces(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertRecord(ctx, newRecord("a.go", "old", []float32{1, 0})))
	require.NoError(t, repo.UpsertRecord(ctx, newRecord("a.go", "new content", []float32{0, 1})))

	got, err := repo.GetRecord(ctx, "a.go")
	require.NoError(t, err)
	assert.Equal(t, "new content", got.Content)
	assert.Equal(t, []float32{0, 1}, got.Embedding)
	assert.Equal(t, int64(11), got.Metadata.FileSizeBytes)

	paths, err := repo.ListPaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, paths)
}

func TestRecordRepository_UpsertInvalid(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	err := repo.UpsertRecord(ctx, newRecord("a.go", "   \n", []float32{1}))
	assert.ErrorIs(t, err, core.ErrInvalidRecord)

	err = repo.UpsertRecord(ctx, newRecord("a.go", "x", nil))
	assert.ErrorIs(t, err, core.ErrEmptyEmbedding)
}

func TestRecordRepository_GetMissing(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.GetRecord(context.Background(), "missing.go")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRecordRepository_ListAndDelete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, repo.UpsertRecord(ctx, newRecord(p, "content "+p, []float32{1})))
	}

	paths, err := repo.ListPaths(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, paths)

	require.NoError(t, repo.DeletePaths(ctx, "b", "not-there"))

	paths, err = repo.ListPaths(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "c"}, paths)
}

func TestRecordRepository_DeleteEmpty(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertRecord(ctx, newRecord("a", "x", []float32{1})))
	require.NoError(t, repo.DeletePaths(ctx))

	paths, err := repo.ListPaths(ctx)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}

func TestFindSimilar_NoRecords(t *testing.T) {
	repo := setupRepo(t)

	results, err := repo.FindSimilar(context.Background(), []float32{0.1, 0.2, 0.3}, 0.5, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindSimilar_InvalidLimit(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.FindSimilar(context.Background(), []float32{1}, 0.5, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestFindSimilar_ThresholdAndOrder(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertRecord(ctx, newRecord("high", "High similarity", []float32{1.0, 0.0, 0.0})))
	require.NoError(t, repo.UpsertRecord(ctx, newRecord("medium", "Medium similarity", []float32{0.7, 0.3, 0.0})))
	require.NoError(t, repo.UpsertRecord(ctx, newRecord("low", "Low similarity", []float32{0.3, 0.7, 0.0})))
	require.NoError(t, repo.UpsertRecord(ctx, newRecord("none", "Orthogonal", []float32{0.0, 0.0, 1.0})))

	query := []float32{1.0, 0.0, 0.0}

	t.Run("high threshold", func(t *testing.T) {
		results, err := repo.FindSimilar(ctx, query, 0.95, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "high", results[0].Record.FilePath)
	})

	t.Run("low threshold", func(t *testing.T) {
		results, err := repo.FindSimilar(ctx, query, 0.2, 10)
		require.NoError(t, err)
		require.Len(t, results, 3)
		for i := 0; i < len(results)-1; i++ {
			assert.GreaterOrEqual(t, results[i].Score, results[i+1].Score)
		}
		assert.Equal(t, "high", results[0].Record.FilePath)
	})

	t.Run("limit", func(t *testing.T) {
		results, err := repo.FindSimilar(ctx, query, 0.0, 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})
}

func TestStore_OpenClose(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.UpsertRecord(ctx, newRecord("a.txt", "hello", []float32{1})))

	paths, err := store.ListPaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, paths)

	require.NoError(t, store.Close())
}

func TestRecordRepository_ClosedBackend(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	ctx := context.Background()
	_, err = repo.ListPaths(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)

	err = repo.DeletePaths(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)

	err = repo.UpsertRecord(ctx, newRecord("a", "x", []float32{1}))
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
