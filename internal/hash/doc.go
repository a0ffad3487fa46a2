// Package hash provides CRC32-Castagnoli checksums for data integrity.
//
// CRC32C is hardware accelerated on x86 (SSE4.2) and ARM (CRC extension)
// and is the checksum S3 accepts for upload integrity validation, which
// is why the S3 result sink computes it client-side before pushing a
// snapshot.
//
// One-shot:
//
//	sum := hash.CRC32C(data)
//
// Streaming:
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	sum := h.Sum32()
package hash
