package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for reading and writing immutable data blobs
// (snapshots, distance matrices). Implementations must be safe for
// concurrent use.
type Store interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create opens a blob for writing. The blob becomes visible on Close.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the names of blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	// ReadAt reads len(p) bytes starting at offset off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// ReadRange returns a reader over [off, off+length). Remote backends
	// serve this with a single ranged request.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
	// Size returns the size of the blob in bytes.
	Size() int64
	Close() error
}

// WritableBlob is a write handle returned by Create.
type WritableBlob interface {
	io.Writer
	// Sync flushes written data to durable storage where the backend
	// supports it.
	Sync() error
	// Close finalizes the blob and makes it visible under its name.
	Close() error
}

// Aborter is an optional interface for WritableBlobs that can discard an
// in-progress write without committing anything under the blob's name.
type Aborter interface {
	Abort() error
}

// Mappable is an optional interface for Blobs whose full contents are
// addressable in memory. Readers use it to decode snapshots without
// copying.
type Mappable interface {
	// Bytes returns the blob contents. The slice is only valid until the
	// blob is closed.
	Bytes() []byte
}
