package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vecsync/ai"
	"github.com/poiesic/vecsync/core"
	"github.com/poiesic/vecsync/storage"
)

// RecordRepository implements storage.RecordStore for BadgerDB.
type RecordRepository struct {
	backend *Backend
}

var (
	_ storage.RecordStore = (*RecordRepository)(nil)
	_ storage.Searcher    = (*RecordRepository)(nil)
)

// NewRecordRepository creates a new RecordRepository.
func NewRecordRepository(backend *Backend) (*RecordRepository, error) {
	if backend == nil {
		return nil, errors.New("badger backend required")
	}
	return &RecordRepository{backend: backend}, nil
}

// Close is a no-op; the backend owns the database handle.
func (r *RecordRepository) Close() error {
	return nil
}

// ListPaths returns the FilePath of every stored record.
func (r *RecordRepository) ListPaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return r.forEachValue(ctx, tx, func(val []byte) error {
			p, err := storage.UnmarshalRecordPath(val)
			if err != nil {
				return err
			}
			paths = append(paths, p)
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// DeletePaths removes the records stored under the given paths.
func (r *RecordRepository) DeletePaths(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	keys := make([][]byte, len(paths))
	for i, p := range paths {
		keys[i] = makeRecordKey(p)
	}
	return r.backend.DeleteKeys(keys)
}

// UpsertRecord inserts or replaces the record keyed by its FilePath.
func (r *RecordRepository) UpsertRecord(ctx context.Context, record *core.Record) error {
	if err := core.ValidateRecord(record); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(record.FilePath)
		if err := r.checkCollision(tx, key, record.FilePath); err != nil {
			return err
		}
		if err := tx.Set(key, storage.MarshalRecord(record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetRecord retrieves the record stored under path.
func (r *RecordRepository) GetRecord(ctx context.Context, path string) (*core.Record, error) {
	var record *core.Record
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeRecordKey(path))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			record, err = storage.UnmarshalRecord(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	if record.FilePath != path {
		return nil, storage.ErrNotFound
	}
	return record, nil
}

// FindSimilar ranks every stored record by cosine similarity to vector.
func (r *RecordRepository) FindSimilar(ctx context.Context, vector []float32, minScore float32, limit int) ([]*core.SearchResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	var results []*core.SearchResult
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return r.forEachValue(ctx, tx, func(val []byte) error {
			record, err := storage.UnmarshalRecord(val)
			if err != nil {
				return err
			}
			if len(record.Embedding) == 0 {
				return nil
			}
			score := ai.CosineSimilarity(vector, record.Embedding)
			if score >= minScore {
				results = append(results, &core.SearchResult{Record: record, Score: score})
			}
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (r *RecordRepository) forEachValue(ctx context.Context, tx *badger.Txn, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(recordPrefix)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := iter.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

// checkCollision refuses to overwrite a different path that hashes to the same key.
func (r *RecordRepository) checkCollision(tx *badger.Txn, key []byte, path string) error {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		existing, err := storage.UnmarshalRecordPath(val)
		if err != nil {
			return err
		}
		if existing != path {
			r.backend.logger.Error("record key collision", "path", path, "existing", existing)
			return fmt.Errorf("record key for %q collides with %q", path, existing)
		}
		return nil
	})
}
