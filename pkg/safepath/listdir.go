package safepath

import (
	"os"
	"path/filepath"

	apperrors "github.com/marmos91/lodestone/internal/errors"
)

// EntryKind discriminates directory listing entries.
type EntryKind string

const (
	// EntryFile marks a regular file (or anything that is not a directory).
	EntryFile EntryKind = "file"

	// EntryDirectory marks a subdirectory.
	EntryDirectory EntryKind = "directory"
)

// Entry describes a single child of a listed directory. Path is relative to
// the instance root and always slash-separated.
type Entry struct {
	Name string    `json:"name"`
	Path string    `json:"path"`
	Kind EntryKind `json:"kind"`
}

// ListDir enumerates the children of dir, which must be a resolved path at
// or below root (typically the result of Join). Entries come back sorted by
// name.
func ListDir(root, dir string) ([]Entry, error) {
	children, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIOFailure, "failed to list directory", err)
	}

	entries := make([]Entry, 0, len(children))
	for _, child := range children {
		kind := EntryFile
		if child.IsDir() {
			kind = EntryDirectory
		}
		entries = append(entries, Entry{
			Name: child.Name(),
			Path: Relative(root, filepath.Join(dir, child.Name())),
			Kind: kind,
		})
	}
	return entries, nil
}
