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

package core

import (
	"errors"
	"fmt"
)

// Domain validation errors
var (
	// ErrInvalidRecord indicates a Record failed validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrEmptyPath indicates the FilePath field is empty.
	ErrEmptyPath = errors.New("file path cannot be empty")

	// ErrAbsolutePath indicates a path that is not root-relative.
	ErrAbsolutePath = errors.New("file path must be relative to the sync root")

	// ErrPathEscapesRoot indicates a path that climbs out of the sync root.
	ErrPathEscapesRoot = errors.New("file path escapes the sync root")

	// ErrEmptyContent indicates the Content field is empty or whitespace only.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyEmbedding indicates a record without an embedding vector.
	ErrEmptyEmbedding = errors.New("embedding cannot be empty")
)

// ConfigError reports missing or invalid configuration. It is fatal and
// raised before any I/O happens.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// RemoteQueryError reports a failure to list the paths held by the store.
// A run that hits it aborts before mutating anything.
type RemoteQueryError struct {
	Err error
}

func (e *RemoteQueryError) Error() string {
	return fmt.Sprintf("fetching remote paths: %v", e.Err)
}

func (e *RemoteQueryError) Unwrap() error { return e.Err }

// RemoteDeleteError reports a failed deletion of stale paths.
// The run continues with ingestion.
type RemoteDeleteError struct {
	Paths []string
	Err   error
}

func (e *RemoteDeleteError) Error() string {
	return fmt.Sprintf("deleting %d stale paths: %v", len(e.Paths), e.Err)
}

func (e *RemoteDeleteError) Unwrap() error { return e.Err }

// Stage names the step of per-file processing that failed.
type Stage string

const (
	StageRead   Stage = "read"
	StageStat   Stage = "stat"
	StageEmbed  Stage = "embed"
	StageUpsert Stage = "upsert"
)

// FileProcessingError reports a failure confined to a single file.
type FileProcessingError struct {
	Path  string
	Stage Stage
	Err   error
}

func (e *FileProcessingError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Stage, e.Err)
}

func (e *FileProcessingError) Unwrap() error { return e.Err }
