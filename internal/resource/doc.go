// Package resource implements a process-wide memory budget.
//
// A Controller is shared by components that hold variable amounts of memory,
// most notably the block cache in front of remote snapshot blobs. Tracking
// uses a weighted semaphore for the hard limit and an atomic counter for
// usage reporting.
//
// TryAcquireMemory is non-blocking and returns false when the reservation
// would exceed the limit; the caller decides whether to evict, shrink, or
// skip its allocation:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30, // 1GB limit
//	})
//
//	if !rc.TryAcquireMemory(1024 * 1024) {
//	    // over budget, skip caching
//	}
//	defer rc.ReleaseMemory(1024 * 1024)
//
// # Thread Safety
//
// All Controller methods are safe for concurrent use.
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully and become no-ops. This
// allows optional budgeting without nil checks everywhere.
package resource
