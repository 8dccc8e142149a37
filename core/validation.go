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
	"fmt"
	"path"
	"strings"
)

// ValidateRecord validates a Record before it is written to a store.
//
// Validation rules:
//   - FilePath must be non-empty, relative and inside the sync root
//   - Content must contain at least one non-whitespace character
//   - Embedding must not be empty
func ValidateRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if err := ValidatePath(record.FilePath); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	if IsBlank(record.Content) {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyContent)
	}

	if len(record.Embedding) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyEmbedding)
	}

	return nil
}

// ValidatePath checks that p is a clean root-relative path.
func ValidatePath(p string) error {
	if p == "" {
		return ErrEmptyPath
	}
	if path.IsAbs(p) || strings.HasPrefix(p, "\\") {
		return fmt.Errorf("%w: %q", ErrAbsolutePath, p)
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return fmt.Errorf("%w: %q", ErrPathEscapesRoot, p)
	}
	return nil
}

// IsBlank reports whether text is empty or whitespace only. A byte order
// mark counts as whitespace.
func IsBlank(text string) bool {
	return strings.TrimSpace(strings.ReplaceAll(text, "\uFEFF", "")) == ""
}
