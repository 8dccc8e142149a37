package storage

import (
	"context"

	"github.com/poiesic/vecsync/core"
)

// DefaultTable is the logical name of the embeddings collection.
const DefaultTable = "codebase_embeddings"

// RecordStore is a keyed collection of records, unique on FilePath.
// Implementations must be thread-safe and support concurrent access.
type RecordStore interface {
	// ListPaths returns the FilePath of every stored record, in no particular order.
	ListPaths(ctx context.Context) ([]string, error)

	// DeletePaths removes the records with the given paths.
	// Paths without a record are ignored. An empty call is a no-op and
	// never reaches the underlying store.
	DeletePaths(ctx context.Context, paths ...string) error

	// UpsertRecord inserts the record, or fully replaces the record that
	// already has the same FilePath.
	UpsertRecord(ctx context.Context, record *core.Record) error

	// GetRecord retrieves the record stored under path.
	// Returns ErrNotFound if it doesn't exist.
	GetRecord(ctx context.Context, path string) (*core.Record, error)

	// Close releases resources held by the store.
	Close() error
}

// Searcher is implemented by stores that can rank records by vector similarity.
type Searcher interface {
	// FindSimilar finds records similar to the given vector.
	// Returns records with similarity >= minScore, up to limit results,
	// ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minScore float32, limit int) ([]*core.SearchResult, error)
}
