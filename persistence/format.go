package persistence

import (
	"errors"
	"fmt"
)

const (
	// MagicNumber identifies scego snapshot files (ASCII: "SCE0")
	MagicNumber = 0x53434530
	// Version is the current snapshot format version (v1.0.0)
	Version = 0x00010000

	// Snapshot kinds
	KindResult       = 1
	KindSparseMatrix = 2

	// Scalar widths recorded in FileHeader.Precision
	PrecisionFloat32 = 4
	PrecisionFloat64 = 8
)

var (
	ErrInvalidMagic       = errors.New("invalid magic number")
	ErrInvalidVersion     = errors.New("unsupported version")
	ErrInvalidKind        = errors.New("invalid snapshot kind")
	ErrInvalidPrecision   = errors.New("snapshot precision mismatch")
	ErrInvalidCompression = errors.New("invalid compression type")
)

// FileHeader is the 64-byte header at the start of every snapshot file.
// All multi-byte fields are little-endian. The section table directly
// follows the header; section payloads follow the table.
type FileHeader struct {
	Magic         uint32 // 0x53434530 ("SCE0")
	Version       uint32 // Snapshot format version
	Kind          uint8  // 1=Result, 2=SparseMatrix
	Precision     uint8  // Scalar width in bytes: 4 (float32) or 8 (float64)
	Compression   uint8  // 0=None, 1=LZ4, 2=ZSTD
	Flags         uint8  // Bit 0: animated, bit 1: per-frame equilibrium trace
	SectionCount  uint32 // Entries in the section table
	NodeCount     uint64 // Embedded nodes (Result) or sequences (SparseMatrix)
	FrameCount    uint32 // Animation snapshots (Result only)
	TableChecksum uint32 // CRC32 of the section table bytes
	Iterations    uint64 // Optimizer iterations executed (Result only)
	EqBits        uint64 // Final equilibrium value as float64 bits (Result only)
	Reserved      [16]byte
}

// FlagAnimated marks a result snapshot that carries animation frames.
const FlagAnimated = 1 << 0

// FlagEqTrace marks a result snapshot that carries the per-frame equilibrium
// values in a trailing section.
const FlagEqTrace = 1 << 1

// Animated reports whether the snapshot carries animation frames.
func (h *FileHeader) Animated() bool {
	return h.Flags&FlagAnimated != 0
}

// EqTrace reports whether the snapshot carries per-frame equilibrium values.
func (h *FileHeader) EqTrace() bool {
	return h.Flags&FlagEqTrace != 0
}

func (h *FileHeader) validate() error {
	if h.Magic != MagicNumber {
		return fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, h.Version)
	}
	if h.Kind != KindResult && h.Kind != KindSparseMatrix {
		return fmt.Errorf("%w: got %d", ErrInvalidKind, h.Kind)
	}
	if h.Precision != PrecisionFloat32 && h.Precision != PrecisionFloat64 {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidPrecision, h.Precision)
	}
	if h.Compression > uint8(CompressionZSTD) {
		return fmt.Errorf("%w: got %d", ErrInvalidCompression, h.Compression)
	}
	return nil
}

// SectionEntry is one row of the section table. Offsets are absolute file
// offsets, so a reader holding the header and the table can fetch any
// section with a single ranged read.
type SectionEntry struct {
	Offset   uint64 // Absolute byte offset of the section payload
	Size     uint64 // Stored (compressed) byte length of the payload
	Count    uint64 // Scalar elements in the decoded payload
	Checksum uint32 // CRC32 of the stored payload bytes
	Reserved [4]byte
}

// Fixed on-disk sizes. Callers doing ranged reads use them to compute how
// many bytes to fetch for the header and the section table.
const (
	// HeaderSize is the byte length of FileHeader on disk.
	HeaderSize = 64

	// SectionEntrySize is the byte length of one SectionEntry on disk.
	SectionEntrySize = 32
)
