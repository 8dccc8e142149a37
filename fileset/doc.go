// Package fileset discovers the local files that should be present in the
// vector store: every non-empty regular file under a root directory that is
// not excluded by the built-in rules or an ignore file.
package fileset
