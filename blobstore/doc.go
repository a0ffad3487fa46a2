// Package blobstore provides storage abstraction for immutable snapshot blobs.
//
// Store is the interface for reading and writing data blobs (embedding
// results, distance matrices). Implementations must be safe for concurrent
// use.
//
// # Built-in Implementations
//
//   - LocalStore: Local filesystem with mmap reads
//   - MemoryStore: In-memory store for tests and small runs
//   - CachingStore: Block-level read cache in front of another store
//   - s3.Store: Amazon S3 with range reads and parallel uploads
//   - minio.Store: MinIO and other S3-compatible object stores
//
// # Custom Implementations
//
// Implement the Store interface to support custom storage backends. For
// cloud backends, serve ReadRange with a single ranged request; frame
// playback fetches one section of a snapshot at a time and never downloads
// the rest of the file.
//
// Blobs that can expose their content as one contiguous byte slice (local
// files via mmap, in-memory buffers) should also implement Mappable; readers
// use it to decode snapshots without copying.
package blobstore
