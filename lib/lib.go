// Package lib provides one-call helpers for KRar archives.
// Each helper builds a fresh core.Reader or core.Writer, so nothing is shared
// between calls.
package lib

import (
	"krar/pkg/core"
)

// Constants for archive format re-exported from core
const (
	Signature = core.Signature
	Version   = core.Version
)

// FileEntry re-exported from core
type FileEntry = core.FileEntry

// Result re-exported from core
type Result = core.Result

// Option re-exported from core
type Option = core.Option

// Create writes sources into a new archive at destination.
func Create(sources []string, destination string, opts ...Option) (Result, error) {
	return core.NewWriter(opts...).Create(sources, destination)
}

// List returns the entries of the archive at path.
func List(path string) ([]FileEntry, error) {
	return core.NewReader().List(path)
}

// Extract writes every entry of the archive at path into destination.
func Extract(path, destination string, opts ...Option) (Result, error) {
	return core.NewReader(opts...).Extract(path, destination)
}

// ExtractFiles writes the named entries of the archive at path into destination.
func ExtractFiles(path string, names []string, destination string, opts ...Option) (Result, error) {
	return core.NewReader(opts...).ExtractFiles(path, names, destination)
}

// Verify checks every entry of the archive at path without writing anything.
func Verify(path string, opts ...Option) (Result, error) {
	return core.NewReader(opts...).Verify(path)
}
