package persistence

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unsafe"
)

// Float is the scalar constraint for embedding snapshots, matching the
// optimizer's fp32/fp64 instantiations.
type Float interface {
	~float32 | ~float64
}

// scalar covers every fixed-width element type stored in snapshot sections.
type scalar interface {
	~float32 | ~float64 | ~uint32 | ~uint64
}

// scalarWidth returns the byte width of T as recorded in FileHeader.Precision.
func scalarWidth[T Float]() uint8 {
	var zero T
	return uint8(unsafe.Sizeof(zero))
}

// WriteFileHeader writes the snapshot header, stamping magic and version.
func WriteFileHeader(w io.Writer, header *FileHeader) error {
	header.Magic = MagicNumber
	header.Version = Version
	return binary.Write(w, binary.LittleEndian, header)
}

// ReadFileHeader reads and validates a snapshot header.
func ReadFileHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if err := header.validate(); err != nil {
		return nil, err
	}
	return &header, nil
}

// DecodeFileHeader parses a snapshot header from the first HeaderSize bytes
// of data. It is the entry point for ranged readers that fetch the header
// and the section table separately from the payload.
func DecodeFileHeader(data []byte) (*FileHeader, error) {
	r := NewSliceReader(data)
	return r.ReadFileHeader()
}

// writeScalars writes a scalar slice as raw little-endian bytes.
// Safety: validates alignment before the unsafe conversion.
func writeScalars[T scalar](w io.Writer, vals []T) error {
	if len(vals) == 0 {
		return nil
	}

	if err := validateScalarAlignment(vals); err != nil {
		return err
	}

	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&vals[0])), len(vals)*int(unsafe.Sizeof(vals[0])))
	_, err := w.Write(byteSlice)
	return err
}

// scalarsFromBytes copies count scalars out of a raw little-endian payload.
func scalarsFromBytes[T scalar](data []byte, count int) ([]T, error) {
	if count == 0 {
		return nil, nil
	}

	var zero T
	width := int(unsafe.Sizeof(zero))
	if len(data) != count*width {
		return nil, fmt.Errorf("persistence: section holds %d bytes, want %d scalars of %d bytes", len(data), count, width)
	}

	out := make([]T, count)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), count*width), data)
	return out, nil
}

// SaveToFile writes a snapshot to a file atomically: the content goes to a
// temp file in the target directory, which is then renamed over the target.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	// Match typical file permissions (best-effort).
	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	// Success: prevent deferred cleanup from removing the final file.
	tmpName = ""
	return nil
}

// LoadFromFile reads a snapshot from a file through a buffered reader.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := bufio.NewReaderSize(f, 256*1024)
	return readFunc(buf)
}
