package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scego/blobstore"
)

func TestSaveLoadMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	snap := makeResultSnapshot[float64](96, 4)

	require.NoError(t, Save(ctx, store, "runs/run-1.sce", snap))

	got, err := Load[float64](ctx, store, "runs/run-1.sce")
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestSaveLoadLocalStore(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocalStore(t.TempDir())
	snap := makeResultSnapshot[float32](64, 2)

	require.NoError(t, Save(ctx, store, "run-1.sce", snap, func(o *WriteOptions) {
		o.Compression = CompressionLZ4
	}))

	// Local blobs are memory-mapped, so this exercises the Mappable path.
	got, err := Load[float32](ctx, store, "run-1.sce")
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestLoadMissing(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	_, err := Load[float64](ctx, store, "no-such-run")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestLoadWrongPrecision(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	require.NoError(t, Save(ctx, store, "run-1.sce", makeResultSnapshot[float64](32, 0)))

	_, err := Load[float32](ctx, store, "run-1.sce")
	assert.ErrorIs(t, err, ErrInvalidPrecision)
}

func TestSaveAbortsOnEncodeError(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	// Embedding length disagrees with the node count, so encoding fails
	// before any payload is committed.
	bad := &ResultSnapshot[float64]{NodeCount: 8, Embedding: make([]float64, 3)}
	require.Error(t, Save(ctx, store, "run-bad.sce", bad))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSaveLoadSparse(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocalStore(t.TempDir())

	snap := &SparseSnapshot{
		N:     4,
		I:     []uint32{0, 0, 1, 2},
		J:     []uint32{1, 2, 3, 3},
		Dists: []float64{1, 4, 2, 7},
	}
	require.NoError(t, SaveSparse(ctx, store, "dists.sce", snap))

	got, err := LoadSparse(ctx, store, "dists.sce")
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}
