// Package mmap provides read-only memory-mapped file access.
//
// The local blob store maps persisted run snapshots instead of reading
// them into a buffer, so decoding a multi-gigabyte animated run touches
// only the pages the decoder actually visits:
//
//	m, err := mmap.Open("run-042.sce")
//	if err != nil { ... }
//	defer m.Close()
//
//	_ = m.Advise(mmap.AccessSequential)
//	snap, err := persistence.DecodeResult[float64](m.Bytes())
//
// The mapping is strictly read-only; writers go through ordinary file
// I/O with an atomic rename.
package mmap
