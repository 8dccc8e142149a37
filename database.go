// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vecsync

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/poiesic/vecsync/ai"
	"github.com/poiesic/vecsync/ai/openai"
	"github.com/poiesic/vecsync/fileset"
	"github.com/poiesic/vecsync/search"
	"github.com/poiesic/vecsync/storage"
	"github.com/poiesic/vecsync/storage/badger"
	"github.com/poiesic/vecsync/storage/postgres"
	"github.com/poiesic/vecsync/storage/supabase"
	"github.com/poiesic/vecsync/syncer"
)

// Database couples the configured record store with an embedder.
type Database struct {
	config   *Config
	store    storage.RecordStore
	embedder ai.Embedder
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	embedder ai.Embedder
	logger   *slog.Logger
}

// WithEmbedder replaces the OpenAI embedder built from Config.AI.
func WithEmbedder(embedder ai.Embedder) DatabaseOption {
	return func(o *databaseOptions) {
		o.embedder = embedder
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// Open validates config and connects the store and embedder. config must
// not be modified afterwards.
func Open(ctx context.Context, config *Config, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	if err := config.ValidateStore(); err != nil {
		return nil, err
	}

	embedder := options.embedder
	if embedder == nil {
		var err error
		aiCfg := *config.AI
		embedder, err = openai.NewEmbedder(&aiCfg)
		if err != nil {
			return nil, err
		}
	}

	store, err := openStore(ctx, config, options.logger)
	if err != nil {
		return nil, err
	}

	return &Database{
		config:   config,
		store:    store,
		embedder: embedder,
		logger:   options.logger,
	}, nil
}

func openStore(ctx context.Context, config *Config, logger *slog.Logger) (storage.RecordStore, error) {
	switch config.resolvedBackend() {
	case BackendSupabase:
		return supabase.New(supabase.Config{
			URL:    config.SupabaseURL,
			Key:    config.SupabaseKey,
			Table:  config.resolvedTable(),
			Logger: logger,
		})
	case BackendPostgres:
		return postgres.Open(ctx, postgres.Config{
			DSN:        config.DatabaseURL,
			Table:      config.resolvedTable(),
			Dimensions: config.AI.Dimensions,
			Migrate:    config.Migrate,
			Logger:     logger,
		})
	case BackendBadger:
		return badger.Open(config.DBPath)
	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownBackend, config.resolvedBackend())
	}
}

// Close releases the store.
func (db *Database) Close() error {
	if err := db.store.Close(); err != nil {
		db.logger.Error("error closing record store", "backend", db.config.resolvedBackend(), "err", err)
		return err
	}
	return nil
}

// Store returns the record store.
func (db *Database) Store() storage.RecordStore {
	return db.store
}

// Embedder returns the embedder.
func (db *Database) Embedder() ai.Embedder {
	return db.embedder
}

// NewPipeline creates a sync pipeline for config.Root. Config.Validate must
// have succeeded.
func (db *Database) NewPipeline(opts ...syncer.Option) (*syncer.Pipeline, error) {
	if err := db.config.Validate(); err != nil {
		return nil, err
	}
	base := []syncer.Option{
		syncer.WithConfig(db.config.resolvedSync()),
		syncer.WithLogger(db.logger),
		syncer.WithProgress(os.Stderr),
		syncer.WithFilesetOptions(fileset.Options{
			IgnoreFile: db.config.IgnoreFile,
			Excludes:   db.config.Excludes,
		}),
	}
	return syncer.NewPipeline(db.store, db.embedder, db.config.Root, append(base, opts...)...)
}

// NewSearcher creates a searcher when the backend supports similarity search.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	s, ok := db.store.(storage.Searcher)
	if !ok {
		return nil, fmt.Errorf("%s backend: %w", db.config.resolvedBackend(), storage.ErrSearchUnsupported)
	}
	return search.NewSearcher(s, db.embedder, append([]search.Option{search.WithLogger(db.logger)}, opts...)...)
}
