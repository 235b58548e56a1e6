// Package backup produces and stores instance archives. An archive is a
// gzip-compressed tarball of the instance directory, keyed by instance
// identity and creation timestamp so archives never collide and sort
// chronologically.
package backup

import (
	"context"
	"io"
	"time"
)

// Entry describes one stored archive.
type Entry struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the archive storage backend. Implementations must be safe for
// concurrent use.
type Store interface {
	// Put streams an archive into the store under the given key,
	// overwriting any existing object.
	Put(ctx context.Context, key string, r io.Reader) error

	// Open returns a reader over a stored archive. The caller closes it.
	// Returns NotFound if the key does not exist.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// List enumerates archives whose keys start with prefix, sorted by
	// key.
	List(ctx context.Context, prefix string) ([]Entry, error)

	// Delete removes a stored archive. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error
}
