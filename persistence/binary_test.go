package persistence

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "result.sce")

	snap := makeResultSnapshot[float32](100, 2)
	require.NoError(t, SaveToFile(path, func(w io.Writer) error {
		return WriteResult(w, snap)
	}))

	var got *ResultSnapshot[float32]
	require.NoError(t, LoadFromFile(path, func(r io.Reader) error {
		var err error
		got, err = ReadResult[float32](r)
		return err
	}))
	assert.Equal(t, snap, got)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "result.sce", entries[0].Name())
}

func TestSaveToFileOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.sce")

	first := makeResultSnapshot[float64](10, 0)
	require.NoError(t, SaveToFile(path, func(w io.Writer) error {
		return WriteResult(w, first)
	}))

	second := makeResultSnapshot[float64](20, 1)
	require.NoError(t, SaveToFile(path, func(w io.Writer) error {
		return WriteResult(w, second)
	}))

	var got *ResultSnapshot[float64]
	require.NoError(t, LoadFromFile(path, func(r io.Reader) error {
		var err error
		got, err = ReadResult[float64](r)
		return err
	}))
	assert.Equal(t, second, got)
}

func TestSaveToFileWriteError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "result.sce")

	fail := errors.New("boom")
	err := SaveToFile(path, func(w io.Writer) error {
		return fail
	})
	require.ErrorIs(t, err, fail)

	// The target must not exist and the temp file must be cleaned up.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadFromFileMissing(t *testing.T) {
	err := LoadFromFile(filepath.Join(t.TempDir(), "missing.sce"), func(r io.Reader) error {
		return nil
	})
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestChecksumWriterReader(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	want := CalculateChecksum(data)

	var buf bytes.Buffer
	cw := NewChecksumWriter(&buf)
	_, err := cw.Write(data)
	require.NoError(t, err)
	assert.Equal(t, want, cw.Sum())
	assert.Equal(t, data, buf.Bytes())

	cw.Reset()
	assert.NotEqual(t, want, cw.Sum())

	cr := NewChecksumReader(bytes.NewReader(data))
	_, err = io.ReadAll(cr)
	require.NoError(t, err)
	require.NoError(t, cr.Verify(want))

	var mismatch *ChecksumMismatchError
	err = cr.Verify(want + 1)
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, want+1, mismatch.Expected)
	assert.Equal(t, want, mismatch.Actual)
}

func TestScalarsFromBytesSizeMismatch(t *testing.T) {
	_, err := scalarsFromBytes[float32](make([]byte, 10), 3)
	require.Error(t, err)
}

func TestScalarsFromBytesEmpty(t *testing.T) {
	out, err := scalarsFromBytes[float64](nil, 0)
	require.NoError(t, err)
	assert.Nil(t, out)
}
