package persistence

import (
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/scego/blobstore"
)

// Save encodes a result snapshot and writes it to the store under name. The
// blob becomes visible atomically on success; when encoding fails mid-stream
// the in-progress write is aborted where the backend supports it, so no
// partial snapshot appears under the name.
func Save[T Float](ctx context.Context, store blobstore.Store, name string, snap *ResultSnapshot[T], optFns ...func(*WriteOptions)) error {
	return saveBlob(ctx, store, name, func(w io.Writer) error {
		return WriteResult(w, snap, optFns...)
	})
}

// Load reads a result snapshot written by Save. Blobs that expose their
// contents in memory (local mmap, in-memory store) are decoded in place;
// remote blobs are streamed with a single ranged read.
func Load[T Float](ctx context.Context, store blobstore.Store, name string) (*ResultSnapshot[T], error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	if m, ok := blob.(blobstore.Mappable); ok {
		return DecodeResult[T](m.Bytes())
	}

	r, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ReadResult[T](r)
}

// SaveSparse writes a distance matrix snapshot to the store under name.
func SaveSparse(ctx context.Context, store blobstore.Store, name string, snap *SparseSnapshot, optFns ...func(*WriteOptions)) error {
	return saveBlob(ctx, store, name, func(w io.Writer) error {
		return WriteSparse(w, snap, optFns...)
	})
}

// LoadSparse reads a distance matrix snapshot written by SaveSparse.
func LoadSparse(ctx context.Context, store blobstore.Store, name string) (*SparseSnapshot, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	if m, ok := blob.(blobstore.Mappable); ok {
		return DecodeSparse(m.Bytes())
	}

	r, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ReadSparse(r)
}

func saveBlob(ctx context.Context, store blobstore.Store, name string, encode func(io.Writer) error) error {
	wb, err := store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("persistence: create %q: %w", name, err)
	}

	if err := encode(wb); err != nil {
		abort(wb)
		return err
	}
	if err := wb.Close(); err != nil {
		return fmt.Errorf("persistence: commit %q: %w", name, err)
	}
	return nil
}

// abort discards an in-progress write, falling back to Close for backends
// without abort support.
func abort(wb blobstore.WritableBlob) {
	if a, ok := wb.(blobstore.Aborter); ok {
		_ = a.Abort()
		return
	}
	_ = wb.Close()
}
