package badger

// NewMemoryRepository creates an in-memory record repository for testing.
// Caller must close the backend when done.
func NewMemoryRepository() (*RecordRepository, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, err
	}

	repo, err := NewRecordRepository(backend)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}

	return repo, backend, nil
}

// Store couples a RecordRepository with the backend it owns so that closing
// the store also closes the database.
type Store struct {
	*RecordRepository
	backend *Backend
}

// Open opens (or creates) a BadgerDB directory and returns a store that owns it.
// An empty path opens an in-memory database.
func Open(path string) (*Store, error) {
	backend, err := OpenBackend(path, path == "")
	if err != nil {
		return nil, err
	}
	repo, err := NewRecordRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return &Store{RecordRepository: repo, backend: backend}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.backend.Close()
}
