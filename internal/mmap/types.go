package mmap

import "errors"

// AccessPattern hints how the mapped data will be accessed.
type AccessPattern int

const (
	// AccessDefault gives the kernel no specific advice.
	AccessDefault AccessPattern = iota
	// AccessSequential expects a front-to-back scan, the usual pattern
	// when decoding a whole snapshot.
	AccessSequential
	// AccessRandom expects scattered reads, as when single frames are
	// picked out of an animated snapshot.
	AccessRandom
	// AccessWillNeed expects the data to be touched soon.
	AccessWillNeed
	// AccessDontNeed expects the data not to be touched again.
	AccessDontNeed
)

var (
	// ErrClosed is returned when accessing a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned when the file size cannot be mapped.
	ErrInvalidSize = errors.New("mmap: invalid file size")
	// ErrInvalidOffset is returned for negative read offsets.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
)
