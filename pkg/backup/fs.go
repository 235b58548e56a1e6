package backup

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/marmos91/lodestone/internal/errors"
)

// FSStore stores archives as plain files under a root directory. Keys map
// directly to relative paths, so the layout on disk mirrors the keyspace
// and stays inspectable with standard tools.
type FSStore struct {
	root string
}

// NewFSStore creates the root directory if needed and returns a store over
// it.
func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		return nil, apperrors.New(apperrors.CodeBadRequest, "backup store path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIOFailure, "failed to create backup directory", err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) keyPath(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *FSStore) Put(ctx context.Context, key string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := s.keyPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to create archive directory", err)
	}

	// Write to a temporary file first so readers never observe a partial
	// archive.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to create archive", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to write archive", err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to finalize archive", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to publish archive", err)
	}
	return nil
}

func (s *FSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "archive %s not found", key)
		}
		return nil, apperrors.Wrap(apperrors.CodeIOFailure, "failed to open archive", err)
	}
	return f, nil
}

func (s *FSStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []Entry
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, Entry{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIOFailure, "failed to list archives", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (s *FSStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(s.keyPath(key)); err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to delete archive", err)
	}
	return nil
}
