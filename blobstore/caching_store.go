package blobstore

import (
	"context"
	"errors"
	"io"

	"github.com/hupe1980/scego/internal/cache"
	"github.com/hupe1980/scego/internal/resource"
	"golang.org/x/sync/errgroup"
)

// CachingStoreOptions configure NewCachingStore.
type CachingStoreOptions struct {
	// BlockSize is the granularity of cached reads in bytes. Reads are
	// aligned to BlockSize boundaries and missing blocks are fetched from
	// the backend as coalesced ranges. Defaults to 256 KiB, matching the
	// snapshot codec's compression block size.
	BlockSize int64

	// CacheBytes caps the memory held by cached blocks. Defaults to 256 MiB.
	CacheBytes int64

	// FetchConcurrency bounds the number of parallel backend range requests
	// a single read may issue. Defaults to 16.
	FetchConcurrency int
}

// CachingStore wraps a Store with a sharded in-memory block cache. It is
// meant for remote backends where every read is a network round trip.
// Blobs that expose their contents via Mappable are returned unwrapped,
// so wrapping a LocalStore or MemoryStore is a no-op.
type CachingStore struct {
	inner      Store
	cache      cache.BlockCache
	blockSize  int64
	fetchLimit int
}

// NewCachingStore wraps inner with a block cache.
func NewCachingStore(inner Store, optFns ...func(*CachingStoreOptions)) *CachingStore {
	opts := CachingStoreOptions{
		BlockSize:        256 << 10,
		CacheBytes:       256 << 20,
		FetchConcurrency: 16,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = 256 << 10
	}
	if opts.CacheBytes <= 0 {
		opts.CacheBytes = 256 << 20
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 16
	}

	rc := resource.NewController(resource.Config{MemoryLimitBytes: opts.CacheBytes})

	return &CachingStore{
		inner:      inner,
		cache:      cache.NewShardedLRUBlockCache(opts.CacheBytes, rc),
		blockSize:  opts.BlockSize,
		fetchLimit: opts.FetchConcurrency,
	}
}

// Open opens the named blob for cached reads.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	// Memory-mapped blobs already read at memory speed.
	if _, ok := b.(Mappable); ok {
		return b, nil
	}
	return &CachingBlob{
		inner:      b,
		cache:      s.cache,
		name:       name,
		blockSize:  s.blockSize,
		fetchLimit: s.fetchLimit,
	}, nil
}

// Create passes through to the backend. Writes are not cached; snapshots
// are written once and never mutated in place.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	s.invalidate(name)
	return s.inner.Create(ctx, name)
}

// Put writes a blob and drops any cached blocks for its previous contents.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

// Delete removes a blob and drops its cached blocks.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

// List passes through to the backend.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// CacheStats returns the aggregate hit and miss counters of the block cache.
func (s *CachingStore) CacheStats() (hits, misses int64) {
	return s.cache.Stats()
}

func (s *CachingStore) invalidate(name string) {
	s.cache.Invalidate(func(key cache.CacheKey) bool {
		return key.Kind == cache.CacheKindBlob && key.Path == name
	})
}

// CachingBlob serves reads from the block cache, fetching missing blocks
// from the backing blob in coalesced ranges.
type CachingBlob struct {
	inner      Blob
	cache      cache.BlockCache
	name       string
	blockSize  int64
	fetchLimit int
}

func (b *CachingBlob) Size() int64 {
	return b.inner.Size()
}

func (b *CachingBlob) Close() error {
	return b.inner.Close()
}

// ReadAt fills p from the cache, fetching missing blocks first. Contiguous
// runs of missing blocks are fetched with a single backend request.
func (b *CachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if off < 0 || off >= b.Size() {
		return 0, io.EOF
	}

	startBlock := off / b.blockSize
	endBlock := (off + int64(len(p)) - 1) / b.blockSize

	if err := b.fillCache(ctx, startBlock, endBlock); err != nil {
		return 0, err
	}

	totalRead := 0
	for blk := startBlock; blk <= endBlock; blk++ {
		blkStart := blk * b.blockSize

		// Intersection of the block with the requested range.
		copyStart := max(blkStart, off)
		copyEnd := min(blkStart+b.blockSize, off+int64(len(p)))
		if copyEnd <= copyStart {
			continue
		}

		blockData, err := b.fetchBlock(ctx, blk)
		if err != nil {
			return totalRead, err
		}

		srcOff := copyStart - blkStart
		if srcOff >= int64(len(blockData)) {
			// The last block is short when the blob size is not a
			// multiple of the block size.
			break
		}
		if copyEnd-blkStart > int64(len(blockData)) {
			copyEnd = blkStart + int64(len(blockData))
		}

		dstOff := copyStart - off
		totalRead += copy(p[dstOff:dstOff+(copyEnd-copyStart)], blockData[srcOff:])
	}

	if totalRead < len(p) {
		return totalRead, io.EOF
	}
	return totalRead, nil
}

// ReadRange returns a reader over [off, off+length), served block by block
// through the cache.
func (b *CachingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	size := b.Size()
	if off < 0 || off >= size {
		return nil, io.EOF
	}
	limit := off + length
	if limit > size {
		limit = size
	}
	return io.NopCloser(&blockRangeReader{blob: b, ctx: ctx, off: off, limit: limit}), nil
}

// fillCache loads every block in [startBlock, endBlock] that is not already
// cached. Adjacent missing blocks are grouped into runs and each run is
// fetched with one ReadAt against the backend.
func (b *CachingBlob) fillCache(ctx context.Context, startBlock, endBlock int64) error {
	type blockRun struct {
		start, count int64
	}

	var missing []blockRun
	run := blockRun{start: -1}

	for blk := startBlock; blk <= endBlock; blk++ {
		key := cache.CacheKey{
			Kind:   cache.CacheKindBlob,
			Path:   b.name,
			Offset: uint64(blk),
		}
		if _, ok := b.cache.Get(ctx, key); ok {
			if run.start != -1 {
				missing = append(missing, run)
				run = blockRun{start: -1}
			}
			continue
		}
		if run.start == -1 {
			run = blockRun{start: blk, count: 1}
		} else {
			run.count++
		}
	}
	if run.start != -1 {
		missing = append(missing, run)
	}
	if len(missing) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.fetchLimit)

	for _, run := range missing {
		g.Go(func() error {
			byteStart := run.start * b.blockSize
			byteSize := run.count * b.blockSize

			size := b.Size()
			if byteStart >= size {
				return nil
			}
			if byteStart+byteSize > size {
				byteSize = size - byteStart
			}

			buf := make([]byte, byteSize)
			n, err := b.inner.ReadAt(gctx, buf, byteStart)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			if n == 0 {
				return nil
			}
			got := buf[:n]

			for i := int64(0); i < run.count; i++ {
				blockOff := i * b.blockSize
				if blockOff >= int64(len(got)) {
					break
				}
				blockEnd := min(blockOff+b.blockSize, int64(len(got)))

				// Copy each block out of buf so the cache does not pin
				// the whole run.
				block := make([]byte, blockEnd-blockOff)
				copy(block, got[blockOff:blockEnd])

				b.cache.Set(gctx, cache.CacheKey{
					Kind:   cache.CacheKindBlob,
					Path:   b.name,
					Offset: uint64(run.start + i),
				}, block)
			}
			return nil
		})
	}
	return g.Wait()
}

// fetchBlock returns one block, from the cache if present, from the backend
// otherwise. Blocks read from the backend are cached on the way out.
func (b *CachingBlob) fetchBlock(ctx context.Context, blk int64) ([]byte, error) {
	key := cache.CacheKey{
		Kind:   cache.CacheKindBlob,
		Path:   b.name,
		Offset: uint64(blk),
	}
	if data, ok := b.cache.Get(ctx, key); ok {
		return data, nil
	}

	buf := make([]byte, b.blockSize)
	n, err := b.inner.ReadAt(ctx, buf, blk*b.blockSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	block := buf[:n]
	if n > 0 {
		b.cache.Set(ctx, key, block)
	}
	return block, nil
}

// blockRangeReader adapts CachingBlob.ReadAt to io.Reader for ReadRange.
type blockRangeReader struct {
	blob  *CachingBlob
	ctx   context.Context
	off   int64
	limit int64
}

func (r *blockRangeReader) Read(p []byte) (int, error) {
	if r.off >= r.limit {
		return 0, io.EOF
	}
	if remaining := r.limit - r.off; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := r.blob.ReadAt(r.ctx, p, r.off)
	r.off += int64(n)
	return n, err
}
