// Package cache provides LRU caching for block data.
//
// The ShardedLRUBlockCache stores recently fetched blocks of snapshot blobs,
// so frame playback over a remote store does not re-download the ranges it
// just read. It uses 64-way sharding for high concurrency.
//
// Key features:
//   - Shard selection via hash/maphash over the blob path and block index
//   - Per-shard mutex for minimal contention
//   - Integrated with the resource controller for a global memory budget
package cache
