package device

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// LaunchConfig is the geometry of one kernel launch.
type LaunchConfig struct {
	// Blocks is the grid size.
	Blocks int

	// BlockSize is the number of threads per block, at most MaxBlockSize.
	BlockSize int

	// HostThreads bounds how many blocks execute concurrently.
	HostThreads int
}

// Validate checks the launch geometry and returns ErrLaunchFailed when it
// is out of range.
func (c LaunchConfig) Validate() error {
	if c.Blocks <= 0 {
		return fmt.Errorf("%w: grid size %d must be positive", ErrLaunchFailed, c.Blocks)
	}
	if c.BlockSize <= 0 || c.BlockSize > MaxBlockSize {
		return fmt.Errorf("%w: block size %d out of range (0, %d]", ErrLaunchFailed, c.BlockSize, MaxBlockSize)
	}
	if c.HostThreads <= 0 {
		return fmt.Errorf("%w: host threads %d must be positive", ErrLaunchFailed, c.HostThreads)
	}
	return nil
}

// Launch runs the kernel once for every (block, thread) pair in the grid
// and returns after all blocks have completed. Threads within a block run
// in thread-index order; up to HostThreads blocks run concurrently. The
// context only gates block scheduling, not kernel bodies.
func (d *Device) Launch(ctx context.Context, cfg LaunchConfig, kernel func(block, thread int)) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	sem := semaphore.NewWeighted(int64(cfg.HostThreads))
	var wg sync.WaitGroup

	for b := 0; b < cfg.Blocks; b++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return err
		}
		wg.Add(1)
		go func(block int) {
			defer wg.Done()
			defer sem.Release(1)
			for t := 0; t < cfg.BlockSize; t++ {
				kernel(block, t)
			}
		}(b)
	}

	wg.Wait()
	return nil
}
