package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// SliceReader provides bounds-checked reads over an in-memory snapshot,
// typically a memory-mapped file or a fully fetched blob. Byte views
// returned by ReadBytes alias the backing slice.
type SliceReader struct {
	b   []byte
	off int
}

func NewSliceReader(b []byte) *SliceReader {
	return &SliceReader{b: b}
}

func (r *SliceReader) Offset() int {
	if r == nil {
		return 0
	}
	return r.off
}

func (r *SliceReader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.b) {
		return nil, fmt.Errorf("persistence: out of bounds read (%d bytes at %d, len=%d)", n, r.off, len(r.b))
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out, nil
}

// ReadFileHeader parses and validates the snapshot header.
func (r *SliceReader) ReadFileHeader() (*FileHeader, error) {
	raw, err := r.ReadBytes(HeaderSize)
	if err != nil {
		return nil, err
	}
	var h FileHeader
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	if err := h.validate(); err != nil {
		return nil, err
	}
	return &h, nil
}

// ReadSectionTable parses count section entries, verifying the table bytes
// against the checksum recorded in the header.
func (r *SliceReader) ReadSectionTable(count int, expected uint32) ([]SectionEntry, error) {
	if count <= 0 {
		return nil, fmt.Errorf("persistence: invalid section count %d", count)
	}
	raw, err := r.ReadBytes(count * SectionEntrySize)
	if err != nil {
		return nil, err
	}
	if actual := CalculateChecksum(raw); actual != expected {
		return nil, &ChecksumMismatchError{Expected: expected, Actual: actual}
	}

	table := make([]SectionEntry, count)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, table); err != nil {
		return nil, err
	}
	return table, nil
}
