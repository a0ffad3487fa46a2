//go:build amd64 || arm64

// Package persistence provides binary serialization for embedding results
// and sparse distance matrices.
//
// A snapshot is a 64-byte header, a CRC32-checksummed section table, and one
// block-compressed section per payload (zstd by default, lz4 or raw storage
// selectable). Section entries carry absolute file offsets, so a single
// animation frame can be fetched with a ranged read instead of downloading
// the whole snapshot.
//
// PLATFORM REQUIREMENTS:
// - Architecture: amd64 or arm64 only
// - Endianness: Little-endian (native on x86_64 and ARM64)
// - Alignment: 4-byte for float32/uint32, 8-byte for float64/uint64
//
// The unsafe operations in this package are verified at runtime with alignment
// checks and platform validation. See safety.go for implementation details.
package persistence
