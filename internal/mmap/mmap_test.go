package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.bin")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestOpenReadClose(t *testing.T) {
	content := []byte("persisted run bytes")
	m, err := Open(writeTemp(t, content))
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, len(content), m.Size())
	assert.Equal(t, content, m.Bytes())

	buf := make([]byte, 3)
	n, err := m.ReadAt(buf, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "run", string(buf))
}

func TestReadAtBounds(t *testing.T) {
	m, err := Open(writeTemp(t, []byte("abcde")))
	require.NoError(t, err)
	defer m.Close()

	// Past the end.
	n, err := m.ReadAt(make([]byte, 4), 100)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)

	// Short read at the tail.
	buf := make([]byte, 4)
	n, err = m.ReadAt(buf, 3)
	assert.Equal(t, 2, n)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "de", string(buf[:n]))

	_, err = m.ReadAt(buf, -1)
	assert.Equal(t, ErrInvalidOffset, err)
}

func TestEmptyFile(t *testing.T) {
	m, err := Open(writeTemp(t, nil))
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 0, m.Size())
	assert.NoError(t, m.Advise(AccessSequential))
}

func TestAfterClose(t *testing.T) {
	m, err := Open(writeTemp(t, []byte("data")))
	require.NoError(t, err)

	require.NoError(t, m.Close())
	// Idempotent.
	require.NoError(t, m.Close())

	assert.Nil(t, m.Bytes())
	assert.ErrorIs(t, m.Advise(AccessRandom), ErrClosed)
	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestAdvise(t *testing.T) {
	m, err := Open(writeTemp(t, make([]byte, 8192)))
	require.NoError(t, err)
	defer m.Close()

	for _, pattern := range []AccessPattern{AccessDefault, AccessSequential, AccessRandom, AccessWillNeed} {
		assert.NoError(t, m.Advise(pattern))
	}
}
