package syncer

import "errors"

var (
	// ErrStoreRequired is returned when a record store is not provided.
	ErrStoreRequired = errors.New("record store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrRootRequired is returned when no root directory is configured.
	ErrRootRequired = errors.New("root directory required")

	// ErrInvalidWorkers is returned when Workers is < 1
	ErrInvalidWorkers = errors.New("workers must be greater than 0")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrInvalidRetryDelay is returned when RetryDelay is negative
	ErrInvalidRetryDelay = errors.New("retry delay cannot be negative")

	// ErrInvalidDeleteBatchSize is returned when DeleteBatchSize is < 1
	ErrInvalidDeleteBatchSize = errors.New("delete batch size must be greater than 0")
)
