package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	apperrors "github.com/marmos91/lodestone/internal/errors"
	"github.com/marmos91/lodestone/internal/logger"
)

const (
	archiveSuffix = ".tar.gz"

	// archiveTimeFormat names archives by UTC creation time so keys sort
	// chronologically within an instance prefix.
	archiveTimeFormat = "20060102T150405Z"
)

// Service turns instance directories into compressed archives and records
// them in a Store.
//
// Thread safety:
// Service is safe for concurrent use as long as the underlying Store is.
// Archives created within the same second share a key; the later write
// wins.
type Service struct {
	store Store
}

// NewService creates a backup service over the given store.
//
// Panics if store is nil (programmer error).
func NewService(store Store) *Service {
	if store == nil {
		panic("backup store cannot be nil")
	}
	return &Service{store: store}
}

// archiveKey returns the store key for an archive of the given instance
// created at ts: "<id>/<timestamp>.tar.gz".
func archiveKey(id string, ts time.Time) string {
	return path.Join(id, ts.UTC().Format(archiveTimeFormat)+archiveSuffix)
}

// BackupInstance archives the directory tree rooted at dir and stores it
// under the instance's key prefix.
//
// The archive is spooled to a temporary file before upload so the store
// receives a body of known size that supports retries. The spool file is
// always removed.
//
// Parameters:
//   - ctx: Controls cancellation of the upload
//   - id: Instance identity, used as the key prefix
//   - dir: Instance directory to archive
//
// Returns the entry describing the stored archive.
func (s *Service) BackupInstance(ctx context.Context, id string, dir string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	start := time.Now()

	spool, err := os.CreateTemp("", "lodestone-backup-*"+archiveSuffix)
	if err != nil {
		return Entry{}, apperrors.Wrap(apperrors.CodeIOFailure, "failed to create archive spool", err)
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	if err := writeArchive(spool, dir); err != nil {
		return Entry{}, err
	}

	info, err := spool.Stat()
	if err != nil {
		return Entry{}, apperrors.Wrap(apperrors.CodeIOFailure, "failed to stat archive spool", err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return Entry{}, apperrors.Wrap(apperrors.CodeIOFailure, "failed to rewind archive spool", err)
	}

	createdAt := time.Now().UTC()
	key := archiveKey(id, createdAt)
	if err := s.store.Put(ctx, key, spool); err != nil {
		return Entry{}, err
	}

	logger.Info("Backed up instance %s to %s (%d bytes in %v)", id, key, info.Size(), time.Since(start).Round(time.Millisecond))

	return Entry{Key: key, Size: info.Size(), LastModified: createdAt}, nil
}

// ListBackups returns the archives stored for an instance, oldest first.
func (s *Service) ListBackups(ctx context.Context, id string) ([]Entry, error) {
	entries, err := s.store.List(ctx, id+"/")
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// writeArchive writes a gzip-compressed tarball of the directory tree
// rooted at dir. Entry names are slash-separated paths relative to dir, so
// extraction recreates the instance layout on any platform. Symlinks and
// other irregular entries are skipped.
func writeArchive(w io.Writer, dir string) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			header.Name += "/"
			return tw.WriteHeader(header)
		}

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, f)
		f.Close()
		return err
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to archive instance directory", err)
	}

	if err := tw.Close(); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to finalize archive", err)
	}
	if err := gz.Close(); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to compress archive", err)
	}
	return nil
}
