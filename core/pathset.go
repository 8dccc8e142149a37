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
	"maps"
	"slices"
)

// PathSet is a set of root-relative file paths.
type PathSet map[string]struct{}

// NewPathSet builds a set from the given paths. Duplicates collapse.
func NewPathSet(paths ...string) PathSet {
	s := make(PathSet, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

// PathSetFromFiles builds a set from the paths of the given local files.
func PathSetFromFiles(files []LocalFile) PathSet {
	s := make(PathSet, len(files))
	for _, f := range files {
		s[f.Path] = struct{}{}
	}
	return s
}

// Add inserts p into the set.
func (s PathSet) Add(p string) {
	s[p] = struct{}{}
}

// Contains reports whether p is in the set.
func (s PathSet) Contains(p string) bool {
	_, ok := s[p]
	return ok
}

// Len returns the number of paths in the set.
func (s PathSet) Len() int {
	return len(s)
}

// Difference returns the paths in s that are not in other.
func (s PathSet) Difference(other PathSet) PathSet {
	out := make(PathSet)
	for p := range s {
		if !other.Contains(p) {
			out[p] = struct{}{}
		}
	}
	return out
}

// Sorted returns the set members in lexical order.
func (s PathSet) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}
