package persistence

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockRoundTrip(t *testing.T) {
	// Repetitive data compresses under every codec; the raw fallback is
	// covered by the incompressible result test.
	data := bytes.Repeat([]byte("abcdefgh"), 4096)

	for _, tt := range []struct {
		name string
		c    CompressionType
	}{
		{"none", CompressionNone},
		{"lz4", CompressionLZ4},
		{"zstd", CompressionZSTD},
	} {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			bw := newBlockWriter(&buf, tt.c, 4096)
			_, err := bw.Write(data)
			require.NoError(t, err)
			require.NoError(t, bw.Flush())

			if tt.c != CompressionNone {
				assert.Less(t, buf.Len(), len(data))
			}

			plain, err := decompressAll(buf.Bytes(), tt.c)
			require.NoError(t, err)
			assert.Equal(t, data, plain)
		})
	}
}

func TestCompressBlockUnknownType(t *testing.T) {
	_, err := compressBlock([]byte("data"), CompressionType(9))
	require.ErrorIs(t, err, ErrInvalidCompression)
}

func TestDecompressAllTruncatedHeader(t *testing.T) {
	_, err := decompressAll([]byte{1, 2, 3}, CompressionZSTD)
	require.Error(t, err)
}

func TestDecompressAllTruncatedBlock(t *testing.T) {
	block, err := compressBlock(bytes.Repeat([]byte("xy"), 512), CompressionZSTD)
	require.NoError(t, err)

	_, err = decompressAll(block[:len(block)-1], CompressionZSTD)
	require.Error(t, err)
}

func TestBlockWriterEmptyFlush(t *testing.T) {
	var buf bytes.Buffer
	bw := newBlockWriter(&buf, CompressionZSTD, 0)
	require.NoError(t, bw.Flush())
	assert.Zero(t, buf.Len())
}
