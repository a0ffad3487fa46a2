package device

import (
	"sync/atomic"
	"unsafe"
)

// Buffer is a typed span of device memory. It is zero-initialized on
// allocation and counts against the owning device's budget until freed.
type Buffer[T any] struct {
	dev   *Device
	data  []T
	bytes int64
	freed atomic.Bool
}

// Alloc allocates a zeroed device buffer of n elements.
func Alloc[T any](d *Device, n int) (*Buffer[T], error) {
	var zero T
	size := int64(n) * int64(unsafe.Sizeof(zero))
	if err := d.reserve(size); err != nil {
		return nil, err
	}
	return &Buffer[T]{
		dev:   d,
		data:  make([]T, n),
		bytes: size,
	}, nil
}

// Data returns the device-resident elements. Kernels index into this slice
// directly; host code should prefer CopyFrom and CopyTo outside launches.
func (b *Buffer[T]) Data() []T {
	return b.data
}

// Len returns the element count.
func (b *Buffer[T]) Len() int {
	return len(b.data)
}

// CopyFrom copies host elements into the buffer and reports how many were
// copied.
func (b *Buffer[T]) CopyFrom(src []T) int {
	return copy(b.data, src)
}

// CopyTo copies buffer elements out to host memory and reports how many
// were copied.
func (b *Buffer[T]) CopyTo(dst []T) int {
	return copy(dst, b.data)
}

// Free returns the buffer's bytes to the device budget. Free is idempotent;
// the buffer must not be used afterwards.
func (b *Buffer[T]) Free() {
	if !b.freed.CompareAndSwap(false, true) {
		return
	}
	b.dev.release(b.bytes)
	b.data = nil
}
