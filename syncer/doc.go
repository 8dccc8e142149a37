// Package syncer reconciles a local file tree with a record store.
//
// A run has three phases:
//   - resolve the local file set and fetch the remote path set concurrently
//   - delete remote records whose path is no longer present locally
//   - read, embed and upsert every non-blank local file
//
// Failures confined to one file are recorded in the Summary and never stop
// the run. A failure to list remote paths, or to resolve the local tree,
// aborts the run before anything is mutated.
package syncer
