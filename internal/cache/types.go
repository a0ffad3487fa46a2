package cache

import (
	"context"
)

// CacheKind separates key spaces so different block sources never collide.
type CacheKind uint8

const (
	CacheKindUnknown CacheKind = iota
	CacheKindBlob              // blob store blocks (snapshot payloads)
)

// CacheKey must be stable across processes.
type CacheKey struct {
	Kind CacheKind
	// Path identifies the source blob (e.g. object key or filename).
	Path string
	// Offset is a logical block identifier (e.g. byte offset / block index).
	Offset uint64
}

// BlockCache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(ctx context.Context, key CacheKey) (b []byte, ok bool)
	// Set caches a block. Implementations may copy or retain; caller must treat b as immutable.
	Set(ctx context.Context, key CacheKey, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key CacheKey) bool)
	// Close releases any resources (e.g. background workers).
	Close() error
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
}
