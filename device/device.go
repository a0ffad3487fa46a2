// Package device provides an in-process accelerator model for the embedding
// optimizer: kernels run as blocks of threads on host goroutines, device
// memory is budgeted and explicitly allocated, and launch geometry is
// validated the way a real accelerator runtime would.
//
// The model keeps the device path's contract testable on any machine while
// preserving its failure modes. Selecting a missing device, exceeding the
// memory budget, and launching with an invalid geometry each surface as a
// distinct sentinel error; nothing silently falls back to the CPU path.
//
// Within a block, threads execute in thread-index order. Blocks may execute
// concurrently, bounded by the launch's HostThreads, so a launch with
// HostThreads=1 is fully sequential and reproducible.
package device

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrDeviceNotFound is returned when the requested device id does not
	// exist.
	ErrDeviceNotFound = errors.New("device: device not found")

	// ErrOutOfMemory is returned when an allocation would exceed the
	// device's memory budget.
	ErrOutOfMemory = errors.New("device: out of memory")

	// ErrLaunchFailed is returned when a kernel launch is rejected, e.g.
	// for invalid grid or block geometry.
	ErrLaunchFailed = errors.New("device: launch failed")
)

const (
	// MaxBlockSize is the largest supported number of threads per block.
	MaxBlockSize = 1024

	// DefaultMemoryBytes is the memory budget of the default device.
	DefaultMemoryBytes = 4 << 30
)

// Device is one accelerator. Its memory budget is tracked across
// allocations; kernel launches schedule blocks onto host goroutines.
type Device struct {
	id        int
	name      string
	memory    int64
	allocated atomic.Int64
}

// New creates a standalone device with the given memory budget. Devices
// created this way are not registered; use Select for the default registry.
func New(name string, memoryBytes int64) *Device {
	return &Device{id: -1, name: name, memory: memoryBytes}
}

var (
	registryOnce sync.Once
	registry     []*Device
)

func devices() []*Device {
	registryOnce.Do(func() {
		registry = []*Device{
			{id: 0, name: "emu0", memory: DefaultMemoryBytes},
		}
	})
	return registry
}

// Count returns the number of registered devices.
func Count() int {
	return len(devices())
}

// Select returns the registered device with the given id.
func Select(id int) (*Device, error) {
	devs := devices()
	if id < 0 || id >= len(devs) {
		return nil, fmt.Errorf("%w: id %d, have %d device(s)", ErrDeviceNotFound, id, len(devs))
	}
	return devs[id], nil
}

// ID returns the device's registry id, or -1 for standalone devices.
func (d *Device) ID() int {
	return d.id
}

// Name returns the device name.
func (d *Device) Name() string {
	return d.name
}

// MemoryBytes returns the device's total memory budget.
func (d *Device) MemoryBytes() int64 {
	return d.memory
}

// AllocatedBytes returns the currently allocated device memory.
func (d *Device) AllocatedBytes() int64 {
	return d.allocated.Load()
}

// reserve claims size bytes of the budget.
func (d *Device) reserve(size int64) error {
	for {
		cur := d.allocated.Load()
		if cur+size > d.memory {
			return fmt.Errorf("%w: need %d bytes, %d of %d in use", ErrOutOfMemory, size, cur, d.memory)
		}
		if d.allocated.CompareAndSwap(cur, cur+size) {
			return nil
		}
	}
}

// release returns size bytes to the budget.
func (d *Device) release(size int64) {
	d.allocated.Add(-size)
}
