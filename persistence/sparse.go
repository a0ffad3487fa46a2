package persistence

import (
	"fmt"
	"io"
)

// SparseSnapshot is the persisted form of a pairwise distance matrix in
// coordinate form. Entry k records distance Dists[k] between sequences I[k]
// and J[k]; absent pairs were dropped by the distance filter.
type SparseSnapshot struct {
	N     int // sequences in the source alignment
	I     []uint32
	J     []uint32
	Dists []float64
}

// WriteSparse encodes a distance matrix snapshot as three sections: row
// indices, column indices, distances.
func WriteSparse(w io.Writer, snap *SparseSnapshot, optFns ...func(*WriteOptions)) error {
	opts := DefaultWriteOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if snap.N <= 0 {
		return fmt.Errorf("persistence: distance matrix has no sequences")
	}
	if len(snap.I) != len(snap.J) || len(snap.I) != len(snap.Dists) {
		return fmt.Errorf("persistence: coordinate slices disagree: %d rows, %d cols, %d distances", len(snap.I), len(snap.J), len(snap.Dists))
	}

	header := &FileHeader{
		Kind:        KindSparseMatrix,
		Precision:   PrecisionFloat64,
		Compression: uint8(opts.Compression),
		NodeCount:   uint64(snap.N),
	}

	enc := newSectionEncoder(opts, 3)
	if err := appendScalarSection(enc, snap.I); err != nil {
		return err
	}
	if err := appendScalarSection(enc, snap.J); err != nil {
		return err
	}
	if err := appendScalarSection(enc, snap.Dists); err != nil {
		return err
	}

	return enc.writeTo(w, header)
}

// ReadSparse decodes a distance matrix snapshot from a sequential stream.
func ReadSparse(r io.Reader) (*SparseSnapshot, error) {
	header, err := ReadFileHeader(r)
	if err != nil {
		return nil, err
	}
	if err := checkSparseHeader(header); err != nil {
		return nil, err
	}

	table, err := readSectionTable(r, header)
	if err != nil {
		return nil, err
	}
	if table[0].Count != table[1].Count || table[0].Count != table[2].Count {
		return nil, fmt.Errorf("persistence: coordinate sections disagree: %d rows, %d cols, %d distances", table[0].Count, table[1].Count, table[2].Count)
	}

	snap := &SparseSnapshot{N: int(header.NodeCount)}

	offset := uint64(HeaderSize + len(table)*SectionEntrySize)
	compression := CompressionType(header.Compression)

	readPayload := func(entry SectionEntry) ([]byte, error) {
		payload, err := readSectionPayload(r, entry, offset)
		if err != nil {
			return nil, err
		}
		offset += entry.Size
		return payload, nil
	}

	payload, err := readPayload(table[0])
	if err != nil {
		return nil, err
	}
	if snap.I, err = decodeScalars[uint32](payload, table[0], compression); err != nil {
		return nil, err
	}

	if payload, err = readPayload(table[1]); err != nil {
		return nil, err
	}
	if snap.J, err = decodeScalars[uint32](payload, table[1], compression); err != nil {
		return nil, err
	}

	if payload, err = readPayload(table[2]); err != nil {
		return nil, err
	}
	if snap.Dists, err = decodeScalars[float64](payload, table[2], compression); err != nil {
		return nil, err
	}

	return snap, nil
}

// DecodeSparse decodes a distance matrix snapshot held fully in memory.
func DecodeSparse(data []byte) (*SparseSnapshot, error) {
	sr := NewSliceReader(data)

	header, err := sr.ReadFileHeader()
	if err != nil {
		return nil, err
	}
	if err := checkSparseHeader(header); err != nil {
		return nil, err
	}

	table, err := sr.ReadSectionTable(int(header.SectionCount), header.TableChecksum)
	if err != nil {
		return nil, err
	}
	if table[0].Count != table[1].Count || table[0].Count != table[2].Count {
		return nil, fmt.Errorf("persistence: coordinate sections disagree: %d rows, %d cols, %d distances", table[0].Count, table[1].Count, table[2].Count)
	}

	snap := &SparseSnapshot{N: int(header.NodeCount)}
	compression := CompressionType(header.Compression)

	verify := func(entry SectionEntry) ([]byte, error) {
		payload, err := sliceSection(data, entry)
		if err != nil {
			return nil, err
		}
		if actual := CalculateChecksum(payload); actual != entry.Checksum {
			return nil, &ChecksumMismatchError{Expected: entry.Checksum, Actual: actual}
		}
		return payload, nil
	}

	payload, err := verify(table[0])
	if err != nil {
		return nil, err
	}
	if snap.I, err = decodeScalars[uint32](payload, table[0], compression); err != nil {
		return nil, err
	}

	if payload, err = verify(table[1]); err != nil {
		return nil, err
	}
	if snap.J, err = decodeScalars[uint32](payload, table[1], compression); err != nil {
		return nil, err
	}

	if payload, err = verify(table[2]); err != nil {
		return nil, err
	}
	if snap.Dists, err = decodeScalars[float64](payload, table[2], compression); err != nil {
		return nil, err
	}

	return snap, nil
}

func checkSparseHeader(header *FileHeader) error {
	if header.Kind != KindSparseMatrix {
		return fmt.Errorf("%w: got %d, want sparse matrix", ErrInvalidKind, header.Kind)
	}
	if header.Precision != PrecisionFloat64 {
		return fmt.Errorf("%w: sparse snapshots hold %d-byte distances, got %d-byte", ErrInvalidPrecision, PrecisionFloat64, header.Precision)
	}
	if header.SectionCount != 3 {
		return fmt.Errorf("persistence: sparse matrix wants 3 sections, header names %d", header.SectionCount)
	}
	return nil
}
