package scego_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scego "github.com/hupe1980/scego"
	"github.com/hupe1980/scego/blobstore"
	"github.com/hupe1980/scego/pairsnp"
	"github.com/hupe1980/scego/testutil"
)

// TestAlignmentToEmbedding runs the full pipeline: synthetic alignment,
// pairwise SNP distances, embedding, persistence of both artifacts.
func TestAlignmentToEmbedding(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(42)

	aln := pairsnp.Alignment{Seqs: testutil.RandomAlignment(rng, 16, 300, 0.05)}

	sm, err := pairsnp.Distances(ctx, aln, func(o *pairsnp.Options) {
		o.KNN = 5
		o.Threads = 2
	})
	require.NoError(t, err)
	require.Equal(t, 16, sm.N)
	require.Equal(t, 16*5, sm.Len())

	store := blobstore.NewLocalStore(t.TempDir())
	require.NoError(t, scego.SaveDistances(ctx, store, "dists.sce", sm))

	loaded, err := scego.LoadDistances(ctx, store, "dists.sce")
	require.NoError(t, err)
	assert.Equal(t, sm, loaded)

	res, err := scego.Embed[float64](ctx, loaded.I, loaded.J, loaded.Dists, func(o *scego.Options) {
		o.MaxIter = 500
		o.Workers = 16
		o.Threads = 2
		o.Perplexity = 5
		o.Seed = rng.Seed()
	})
	require.NoError(t, err)

	y := res.Embedding()
	require.Len(t, y, 32)
	for _, v := range y {
		require.False(t, math.IsNaN(v))
	}

	require.NoError(t, scego.SaveResult(ctx, store, "run.sce", res))
	back, err := scego.LoadResult[float64](ctx, store, "run.sce")
	require.NoError(t, err)
	assert.Equal(t, res.Embedding(), back.Embedding())
}

// TestPipelineInitialLayout seeds the optimizer with a precomputed scatter
// instead of the internal one.
func TestPipelineInitialLayout(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(9)

	i, j, dists := testutil.RingGraph(12)

	res, err := scego.Embed[float64](ctx, i, j, dists, func(o *scego.Options) {
		o.MaxIter = 200
		o.Workers = 4
		o.Threads = 1
		o.Perplexity = 2
		o.InitialEmbedding = rng.Layout(12)
	})
	require.NoError(t, err)
	assert.Equal(t, 12, res.NumNodes())
}
