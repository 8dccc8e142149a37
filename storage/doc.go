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

// Package storage provides the storage abstraction layer for vecsync.
//
// RecordStore is the keyed collection the sync pipeline reconciles against:
// it lists stored paths, deletes stale paths and upserts records on the
// file_path key. Searcher is an optional capability for similarity queries.
//
// # Backends
//
//   - storage/supabase: a Supabase project reached through its PostgREST API
//   - storage/postgres: any PostgreSQL with pgvector, through gorm
//   - storage/badger: an embedded BadgerDB directory (or in-memory for tests)
//
// Public constructors return concrete types; callers hold them through the
// RecordStore interface so backends can be swapped without touching the
// pipeline.
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access
// from multiple goroutines.
//
// # Context Support
//
// All store methods accept context.Context for cancellation and timeout
// support.
package storage
