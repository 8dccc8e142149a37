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
	"encoding/binary"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// ID is a fixed-width identifier derived from a record's file path.
type ID uint64

// IDFromPath generates a deterministic ID from a root-relative path using BLAKE2b hashing.
// Identical paths always produce identical IDs.
func IDFromPath(p string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(p))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// LocalFile describes a file discovered under the sync root.
// It only lives for the duration of a single run.
type LocalFile struct {
	Path      string // Root-relative, slash separated
	AbsPath   string
	SizeBytes int64
	Extension string // Includes the leading dot, empty if none
}

// NewLocalFile builds a LocalFile from a root-relative path and its absolute location.
func NewLocalFile(relPath, absPath string, size int64) LocalFile {
	rel := NormalizePath(relPath)
	return LocalFile{
		Path:      rel,
		AbsPath:   absPath,
		SizeBytes: size,
		Extension: path.Ext(rel),
	}
}

// Metadata is the per-record metadata stored next to the embedding.
type Metadata struct {
	FileExtension string `json:"file_extension"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// Record is a stored document keyed by FilePath.
// Upserting a Record replaces any existing record with the same FilePath.
type Record struct {
	FilePath  string    `json:"file_path"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
	Metadata  Metadata  `json:"metadata"`
}

// Id returns the path-derived identifier for the record.
func (r *Record) Id() ID {
	return IDFromPath(r.FilePath)
}

// SearchResult represents a search result with the full record and relevance score.
type SearchResult struct {
	Record *Record
	Score  float32
}

// NormalizePath converts a root-relative path to its platform-neutral form.
// Only the OS separator is rewritten; a backslash in a POSIX name is kept.
func NormalizePath(p string) string {
	p = path.Clean(filepath.ToSlash(p))
	return strings.TrimPrefix(p, "./")
}
