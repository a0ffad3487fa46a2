package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType selects the block compression for snapshot sections.
type CompressionType uint8

const (
	// CompressionNone stores sections uncompressed.
	CompressionNone CompressionType = 0
	// CompressionLZ4 uses LZ4 block compression (fast, lighter ratio).
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD uses ZSTD block compression (better ratio, default).
	CompressionZSTD CompressionType = 2
)

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Each block is framed as [UncompressedSize uint32][CompressedSize uint32][Data...].
// CompressedSize == 0 means the block is stored raw.
const blockHeaderSize = 8

// compressBlock frames a block for the given algorithm. Blocks that do not
// compress below 90% of their input are stored raw.
func compressBlock(data []byte, compression CompressionType) ([]byte, error) {
	var compressed []byte
	var err error

	switch compression {
	case CompressionLZ4:
		compressed, err = compressBlockLZ4(data)
	case CompressionZSTD:
		compressed, err = compressBlockZSTD(data)
	case CompressionNone:
		// Stored raw, framed below.
	default:
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCompression, compression)
	}

	if err != nil {
		return nil, err
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		result := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(result[4:], 0) // 0 = stored raw
		copy(result[blockHeaderSize:], data)
		return result, nil
	}

	result := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(result[4:], uint32(len(compressed)))
	copy(result[blockHeaderSize:], compressed)
	return result, nil
}

func compressBlockLZ4(data []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}

	if n == 0 {
		return nil, nil // Incompressible
	}

	return compressed[:n], nil
}

func compressBlockZSTD(data []byte) ([]byte, error) {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)

	return enc.EncodeAll(data, nil), nil
}

// blockWriter buffers writes and emits framed, compressed blocks to an
// underlying writer.
type blockWriter struct {
	w           io.Writer
	compression CompressionType
	blockSize   int
	buffer      *bytes.Buffer
}

// defaultBlockSize bounds the memory a reader needs per decompressed block.
const defaultBlockSize = 256 * 1024

func newBlockWriter(w io.Writer, compression CompressionType, blockSize int) *blockWriter {
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}
	return &blockWriter{
		w:           w,
		compression: compression,
		blockSize:   blockSize,
		buffer:      bytes.NewBuffer(make([]byte, 0, blockSize)),
	}
}

// Write buffers p, flushing full blocks as they fill.
func (bw *blockWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		space := bw.blockSize - bw.buffer.Len()
		if space <= 0 {
			if err := bw.flushBlock(); err != nil {
				return total, err
			}
			space = bw.blockSize
		}

		toWrite := len(p)
		if toWrite > space {
			toWrite = space
		}

		n, err := bw.buffer.Write(p[:toWrite])
		if err != nil {
			return total, err
		}
		total += n
		p = p[n:]
	}
	return total, nil
}

func (bw *blockWriter) flushBlock() error {
	if bw.buffer.Len() == 0 {
		return nil
	}

	block, err := compressBlock(bw.buffer.Bytes(), bw.compression)
	if err != nil {
		return err
	}

	if _, err := bw.w.Write(block); err != nil {
		return err
	}
	bw.buffer.Reset()
	return nil
}

// Flush writes any remaining buffered data as a final block.
func (bw *blockWriter) Flush() error {
	return bw.flushBlock()
}

// decompressAll reassembles the plaintext of a framed block stream.
func decompressAll(data []byte, compression CompressionType) ([]byte, error) {
	var result []byte
	offset := 0

	for offset < len(data) {
		if offset+blockHeaderSize > len(data) {
			return nil, errors.New("persistence: truncated block header")
		}

		uncompressedSize := int(binary.LittleEndian.Uint32(data[offset:]))
		compressedSize := int(binary.LittleEndian.Uint32(data[offset+4:]))
		offset += blockHeaderSize

		if compressedSize == 0 {
			// Stored raw
			if offset+uncompressedSize > len(data) {
				return nil, errors.New("persistence: block extends beyond section")
			}
			result = append(result, data[offset:offset+uncompressedSize]...)
			offset += uncompressedSize
			continue
		}

		if offset+compressedSize > len(data) {
			return nil, errors.New("persistence: compressed block extends beyond section")
		}
		block := data[offset : offset+compressedSize]
		offset += compressedSize

		plain := make([]byte, uncompressedSize)

		switch compression {
		case CompressionLZ4:
			n, err := lz4.UncompressBlock(block, plain)
			if err != nil {
				return nil, err
			}
			if n != uncompressedSize {
				return nil, errors.New("persistence: decompressed size mismatch")
			}

		case CompressionZSTD:
			dec := getZstdDecoder()
			decoded, err := dec.DecodeAll(block, plain[:0])
			putZstdDecoder(dec)
			if err != nil {
				return nil, err
			}
			if len(decoded) != uncompressedSize {
				return nil, errors.New("persistence: decompressed size mismatch")
			}
			plain = decoded

		default:
			return nil, fmt.Errorf("%w: compressed block in uncompressed snapshot", ErrInvalidCompression)
		}

		result = append(result, plain...)
	}

	return result, nil
}
