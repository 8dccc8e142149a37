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

package syncer

import "time"

// Config holds configuration for a sync run.
type Config struct {
	// Workers is the number of files processed concurrently
	Workers int

	// MaxAttempts is the number of tries for each remote or embedding call.
	// 1 disables retry.
	MaxAttempts int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// ReportInterval is how often to report progress (number of files)
	ReportInterval int

	// DeleteBatchSize caps the number of paths sent in one delete call
	DeleteBatchSize int

	// DryRun resolves, fetches and reconciles without mutating the store
	// or calling the embedder.
	DryRun bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Workers:         1,
		MaxAttempts:     1,
		RetryDelay:      1 * time.Second,
		ReportInterval:  100,
		DeleteBatchSize: 200,
	}
}

// Validate checks that every numeric setting is usable.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return ErrInvalidWorkers
	}
	if c.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if c.RetryDelay < 0 {
		return ErrInvalidRetryDelay
	}
	if c.DeleteBatchSize < 1 {
		return ErrInvalidDeleteBatchSize
	}
	return nil
}
