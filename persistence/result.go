package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// WriteOptions configures snapshot encoding.
type WriteOptions struct {
	// Compression selects the section codec.
	Compression CompressionType

	// BlockSize caps the bytes compressed per block. Defaults to 256KB.
	BlockSize int
}

// DefaultWriteOptions are the defaults for snapshot encoding.
var DefaultWriteOptions = WriteOptions{
	Compression: CompressionZSTD,
	BlockSize:   defaultBlockSize,
}

// ResultSnapshot is the persisted form of one optimizer run.
type ResultSnapshot[T Float] struct {
	NodeCount  int
	Animated   bool
	Iterations uint64
	Eq         float64
	Embedding  []T   // length NodeCount*2
	Frames     [][]T // animation snapshots, each length NodeCount*2
	EqFrames   []T   // per-frame equilibrium values, empty or length len(Frames)
}

// WriteResult encodes a result snapshot: a 64-byte header, a checksummed
// section table, then one block-compressed section per payload (the final
// embedding first, animation frames after it, the equilibrium trace last).
func WriteResult[T Float](w io.Writer, snap *ResultSnapshot[T], optFns ...func(*WriteOptions)) error {
	opts := DefaultWriteOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if snap.NodeCount <= 0 {
		return fmt.Errorf("persistence: result has no nodes")
	}
	if len(snap.Embedding) != snap.NodeCount*2 {
		return fmt.Errorf("persistence: embedding length %d does not match %d nodes", len(snap.Embedding), snap.NodeCount)
	}
	for k, frame := range snap.Frames {
		if len(frame) != snap.NodeCount*2 {
			return fmt.Errorf("persistence: frame %d length %d does not match %d nodes", k, len(frame), snap.NodeCount)
		}
	}
	if len(snap.EqFrames) != 0 && len(snap.EqFrames) != len(snap.Frames) {
		return fmt.Errorf("persistence: equilibrium trace length %d does not match %d frames", len(snap.EqFrames), len(snap.Frames))
	}

	header := &FileHeader{
		Kind:        KindResult,
		Precision:   scalarWidth[T](),
		Compression: uint8(opts.Compression),
		NodeCount:   uint64(snap.NodeCount),
		FrameCount:  uint32(len(snap.Frames)),
		Iterations:  snap.Iterations,
		EqBits:      math.Float64bits(snap.Eq),
	}
	if snap.Animated {
		header.Flags |= FlagAnimated
	}
	if len(snap.EqFrames) > 0 {
		header.Flags |= FlagEqTrace
	}

	sections := 1 + len(snap.Frames)
	if len(snap.EqFrames) > 0 {
		sections++
	}
	enc := newSectionEncoder(opts, sections)
	if err := appendScalarSection(enc, snap.Embedding); err != nil {
		return err
	}
	for _, frame := range snap.Frames {
		if err := appendScalarSection(enc, frame); err != nil {
			return err
		}
	}
	if len(snap.EqFrames) > 0 {
		if err := appendScalarSection(enc, snap.EqFrames); err != nil {
			return err
		}
	}

	return enc.writeTo(w, header)
}

// ReadResult decodes a result snapshot from a sequential stream.
func ReadResult[T Float](r io.Reader) (*ResultSnapshot[T], error) {
	header, err := ReadFileHeader(r)
	if err != nil {
		return nil, err
	}
	if err := checkResultHeader[T](header); err != nil {
		return nil, err
	}

	table, err := readSectionTable(r, header)
	if err != nil {
		return nil, err
	}

	snap := &ResultSnapshot[T]{
		NodeCount:  int(header.NodeCount),
		Animated:   header.Animated(),
		Iterations: header.Iterations,
		Eq:         math.Float64frombits(header.EqBits),
	}

	coords := header.NodeCount * 2
	offset := uint64(HeaderSize + len(table)*SectionEntrySize)
	compression := CompressionType(header.Compression)

	readSection := func(entry SectionEntry, want uint64) ([]T, error) {
		if entry.Count != want {
			return nil, fmt.Errorf("persistence: section holds %d scalars, want %d", entry.Count, want)
		}
		payload, err := readSectionPayload(r, entry, offset)
		if err != nil {
			return nil, err
		}
		offset += entry.Size
		return decodeScalars[T](payload, entry, compression)
	}

	if snap.Embedding, err = readSection(table[0], coords); err != nil {
		return nil, err
	}
	if header.FrameCount > 0 {
		snap.Frames = make([][]T, header.FrameCount)
		for k := range snap.Frames {
			if snap.Frames[k], err = readSection(table[k+1], coords); err != nil {
				return nil, err
			}
		}
	}
	if header.EqTrace() {
		if snap.EqFrames, err = readSection(table[1+header.FrameCount], uint64(header.FrameCount)); err != nil {
			return nil, err
		}
	}

	return snap, nil
}

// DecodeResult decodes a result snapshot held fully in memory, typically a
// memory-mapped file. All scalar data is copied out, so the backing slice
// may be released afterwards.
func DecodeResult[T Float](data []byte) (*ResultSnapshot[T], error) {
	sr := NewSliceReader(data)

	header, err := sr.ReadFileHeader()
	if err != nil {
		return nil, err
	}
	if err := checkResultHeader[T](header); err != nil {
		return nil, err
	}

	table, err := sr.ReadSectionTable(int(header.SectionCount), header.TableChecksum)
	if err != nil {
		return nil, err
	}

	snap := &ResultSnapshot[T]{
		NodeCount:  int(header.NodeCount),
		Animated:   header.Animated(),
		Iterations: header.Iterations,
		Eq:         math.Float64frombits(header.EqBits),
	}

	coords := header.NodeCount * 2

	readSection := func(entry SectionEntry, want uint64) ([]T, error) {
		if entry.Count != want {
			return nil, fmt.Errorf("persistence: section holds %d scalars, want %d", entry.Count, want)
		}
		payload, err := sliceSection(data, entry)
		if err != nil {
			return nil, err
		}
		return DecodeScalarSection[T](header, entry, payload)
	}

	if snap.Embedding, err = readSection(table[0], coords); err != nil {
		return nil, err
	}
	if header.FrameCount > 0 {
		snap.Frames = make([][]T, header.FrameCount)
		for k := range snap.Frames {
			if snap.Frames[k], err = readSection(table[k+1], coords); err != nil {
				return nil, err
			}
		}
	}
	if header.EqTrace() {
		if snap.EqFrames, err = readSection(table[1+header.FrameCount], uint64(header.FrameCount)); err != nil {
			return nil, err
		}
	}

	return snap, nil
}

// DecodeScalarSection verifies and decodes one section payload fetched with
// a ranged read. data must hold exactly entry.Size bytes.
func DecodeScalarSection[T Float](header *FileHeader, entry SectionEntry, data []byte) ([]T, error) {
	if header.Precision != scalarWidth[T]() {
		return nil, fmt.Errorf("%w: snapshot holds %d-byte scalars, requested %d-byte", ErrInvalidPrecision, header.Precision, scalarWidth[T]())
	}
	if uint64(len(data)) != entry.Size {
		return nil, fmt.Errorf("persistence: section payload is %d bytes, want %d", len(data), entry.Size)
	}
	if actual := CalculateChecksum(data); actual != entry.Checksum {
		return nil, &ChecksumMismatchError{Expected: entry.Checksum, Actual: actual}
	}
	return decodeScalars[T](data, entry, CompressionType(header.Compression))
}

// DecodeSectionTable parses the section table from its raw bytes, verifying
// them against the header checksum. data must hold exactly the table bytes
// that follow the file header.
func DecodeSectionTable(header *FileHeader, data []byte) ([]SectionEntry, error) {
	return NewSliceReader(data).ReadSectionTable(int(header.SectionCount), header.TableChecksum)
}

func checkResultHeader[T Float](header *FileHeader) error {
	if header.Kind != KindResult {
		return fmt.Errorf("%w: got %d, want result", ErrInvalidKind, header.Kind)
	}
	if header.Precision != scalarWidth[T]() {
		return fmt.Errorf("%w: snapshot holds %d-byte scalars, requested %d-byte", ErrInvalidPrecision, header.Precision, scalarWidth[T]())
	}
	sections := 1 + int(header.FrameCount)
	if header.EqTrace() {
		sections++
	}
	if int(header.SectionCount) != sections {
		return fmt.Errorf("persistence: result wants %d sections, header names %d", sections, header.SectionCount)
	}
	return nil
}

// sectionEncoder accumulates compressed sections and their table entries,
// then emits header, table, and payload in file order.
type sectionEncoder struct {
	opts    WriteOptions
	payload bytes.Buffer
	cw      *ChecksumWriter
	table   []SectionEntry
	base    int // absolute offset of the first payload byte
}

func newSectionEncoder(opts WriteOptions, sections int) *sectionEncoder {
	enc := &sectionEncoder{
		opts:  opts,
		table: make([]SectionEntry, 0, sections),
		base:  HeaderSize + sections*SectionEntrySize,
	}
	enc.cw = NewChecksumWriter(&enc.payload)
	return enc
}

func appendScalarSection[T scalar](enc *sectionEncoder, vals []T) error {
	start := enc.payload.Len()
	enc.cw.Reset()

	bw := newBlockWriter(enc.cw, enc.opts.Compression, enc.opts.BlockSize)
	if err := writeScalars(bw, vals); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	enc.table = append(enc.table, SectionEntry{
		Offset:   uint64(enc.base + start),
		Size:     uint64(enc.payload.Len() - start),
		Count:    uint64(len(vals)),
		Checksum: enc.cw.Sum(),
	})
	return nil
}

func (enc *sectionEncoder) writeTo(w io.Writer, header *FileHeader) error {
	header.SectionCount = uint32(len(enc.table))

	var table bytes.Buffer
	if err := binary.Write(&table, binary.LittleEndian, enc.table); err != nil {
		return err
	}
	header.TableChecksum = CalculateChecksum(table.Bytes())

	if err := WriteFileHeader(w, header); err != nil {
		return err
	}
	if _, err := w.Write(table.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(enc.payload.Bytes())
	return err
}

// readSectionTable reads and verifies the section table from a stream.
func readSectionTable(r io.Reader, header *FileHeader) ([]SectionEntry, error) {
	count := int(header.SectionCount)
	if count <= 0 {
		return nil, fmt.Errorf("persistence: invalid section count %d", count)
	}

	table := make([]SectionEntry, count)
	cr := NewChecksumReader(r)
	if err := binary.Read(cr, binary.LittleEndian, table); err != nil {
		return nil, err
	}
	if err := cr.Verify(header.TableChecksum); err != nil {
		return nil, err
	}
	return table, nil
}

// readSectionPayload reads one section's stored bytes from a stream,
// verifying placement and checksum. Sections are laid out back to back in
// table order, so a sequential reader can consume them without seeking.
func readSectionPayload(r io.Reader, entry SectionEntry, expectedOffset uint64) ([]byte, error) {
	if entry.Offset != expectedOffset {
		return nil, fmt.Errorf("persistence: section at offset %d, expected %d", entry.Offset, expectedOffset)
	}

	payload := make([]byte, entry.Size)
	cr := NewChecksumReader(r)
	if _, err := io.ReadFull(cr, payload); err != nil {
		return nil, err
	}
	if err := cr.Verify(entry.Checksum); err != nil {
		return nil, err
	}
	return payload, nil
}

// sliceSection bounds-checks and slices one section's stored bytes out of an
// in-memory snapshot.
func sliceSection(data []byte, entry SectionEntry) ([]byte, error) {
	end := entry.Offset + entry.Size
	if end < entry.Offset || end > uint64(len(data)) {
		return nil, fmt.Errorf("persistence: section [%d, %d) extends beyond snapshot of %d bytes", entry.Offset, end, len(data))
	}
	return data[entry.Offset:end], nil
}

// decodeScalars decompresses a section payload and copies out its scalars.
func decodeScalars[T scalar](payload []byte, entry SectionEntry, compression CompressionType) ([]T, error) {
	plain, err := decompressAll(payload, compression)
	if err != nil {
		return nil, err
	}
	return scalarsFromBytes[T](plain, int(entry.Count))
}
