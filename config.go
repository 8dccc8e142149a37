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
	"errors"
	"fmt"

	"github.com/poiesic/vecsync/ai"
	"github.com/poiesic/vecsync/core"
	"github.com/poiesic/vecsync/storage"
	"github.com/poiesic/vecsync/storage/postgres"
	"github.com/poiesic/vecsync/syncer"
)

// Backend names a record store implementation.
type Backend string

const (
	BackendSupabase Backend = "supabase"
	BackendPostgres Backend = "postgres"
	BackendBadger   Backend = "badger"
)

// Environment variables that carry secrets and connection settings.
const (
	EnvSupabaseURL = "SUPABASE_URL"
	EnvSupabaseKey = "SUPABASE_SERVICE_ROLE_KEY"
	EnvOpenAIKey   = "OPENAI_API_KEY"
	EnvDatabaseURL = "DATABASE_URL"
)

var (
	errRequired = errors.New("is required")
	errNotSet   = errors.New("not configured")
)

// Config describes one vecsync deployment. It is not modified after
// Validate succeeds.
type Config struct {
	// Root is the directory whose files are synced.
	Root string
	// IgnoreFile is the exclusion file, relative to Root. Empty means .gitignore.
	IgnoreFile string
	// Excludes are extra exclusion patterns.
	Excludes []string

	Backend Backend
	// Table is the logical collection name.
	Table string

	SupabaseURL string
	SupabaseKey string
	// DatabaseURL is the postgres DSN.
	DatabaseURL string
	// DBPath is the badger directory.
	DBPath string
	// Migrate creates the postgres schema on open.
	Migrate bool

	AI   *ai.Config
	Sync *syncer.Config
}

// DefaultConfig returns a Config for the supabase backend with default AI
// and sync settings. Secrets are left empty.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendSupabase,
		Table:   storage.DefaultTable,
		AI:      ai.DefaultConfig(),
		Sync:    syncer.DefaultConfig(),
	}
}

// resolvedBackend is Backend, or supabase when unset.
func (c *Config) resolvedBackend() Backend {
	if c.Backend == "" {
		return BackendSupabase
	}
	return c.Backend
}

// resolvedTable is Table, or the default table when unset.
func (c *Config) resolvedTable() string {
	if c.Table == "" {
		return storage.DefaultTable
	}
	return c.Table
}

// resolvedSync is Sync, or the default sync settings when unset.
func (c *Config) resolvedSync() *syncer.Config {
	if c.Sync == nil {
		return syncer.DefaultConfig()
	}
	return c.Sync
}

// ValidateStore checks everything needed to open the store and embedder.
// It does not modify c. Every failure is a *core.ConfigError.
func (c *Config) ValidateStore() error {
	if err := postgres.ValidateTableName(c.resolvedTable()); err != nil {
		return &core.ConfigError{Field: "table", Err: err}
	}

	switch c.resolvedBackend() {
	case BackendSupabase:
		if c.SupabaseURL == "" {
			return &core.ConfigError{Field: EnvSupabaseURL, Err: errRequired}
		}
		if c.SupabaseKey == "" {
			return &core.ConfigError{Field: EnvSupabaseKey, Err: errRequired}
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return &core.ConfigError{Field: EnvDatabaseURL, Err: errRequired}
		}
	case BackendBadger:
		if c.DBPath == "" {
			return &core.ConfigError{Field: "db-path", Err: errRequired}
		}
	default:
		return &core.ConfigError{Field: "backend", Err: fmt.Errorf("%w: %q", storage.ErrUnknownBackend, c.Backend)}
	}

	if c.AI == nil {
		return &core.ConfigError{Field: "ai", Err: errNotSet}
	}
	// ai.Config.Validate normalizes in place, so check a copy.
	aiCfg := *c.AI
	if err := aiCfg.Validate(); err != nil {
		field := "ai"
		if errors.Is(err, ai.ErrAPIKeyRequired) {
			field = EnvOpenAIKey
		}
		return &core.ConfigError{Field: field, Err: err}
	}
	return nil
}

// Validate checks the full configuration for a sync run. Unset Backend,
// Table and Sync fall back to their defaults without being written back.
// Every failure is a *core.ConfigError.
func (c *Config) Validate() error {
	if c.Root == "" {
		return &core.ConfigError{Field: "root", Err: errRequired}
	}
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if err := c.resolvedSync().Validate(); err != nil {
		return &core.ConfigError{Field: "sync", Err: err}
	}
	return nil
}
