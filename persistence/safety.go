package persistence

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"
)

var (
	// ErrUnsupportedArchitecture is returned when running on unsupported CPU architecture
	ErrUnsupportedArchitecture = errors.New("unsupported architecture: only amd64 and arm64 are supported")

	// ErrBigEndian is returned when running on big-endian systems
	ErrBigEndian = errors.New("big-endian systems are not supported")

	// ErrUnalignedAccess is returned when attempting unaligned memory access
	ErrUnalignedAccess = errors.New("unaligned memory access detected")
)

// init performs startup validation of platform requirements
func init() {
	if err := validatePlatform(); err != nil {
		panic(fmt.Sprintf("scego/persistence: %v", err))
	}
}

// validatePlatform checks if the current platform supports unsafe operations
func validatePlatform() error {
	arch := runtime.GOARCH
	if arch != "amd64" && arch != "arm64" {
		return fmt.Errorf("%w: %s", ErrUnsupportedArchitecture, arch)
	}

	// Stored snapshots are little-endian; raw slice writes require matching
	// host byte order.
	if !isLittleEndian() {
		return ErrBigEndian
	}

	return nil
}

// isLittleEndian checks if the system is little-endian
func isLittleEndian() bool {
	var test uint16 = 0x0001
	firstByte := *(*byte)(unsafe.Pointer(&test))
	return firstByte == 1
}

// validateScalarAlignment checks that a scalar slice is aligned for its
// element type before it is reinterpreted as raw bytes.
func validateScalarAlignment[T scalar](s []T) error {
	if len(s) == 0 {
		return nil
	}

	ptr := uintptr(unsafe.Pointer(&s[0]))
	if align := unsafe.Alignof(s[0]); ptr%align != 0 {
		return fmt.Errorf("%w: %d-byte scalar slice at address 0x%x", ErrUnalignedAccess, unsafe.Sizeof(s[0]), ptr)
	}

	return nil
}
