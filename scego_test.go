package scego_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scego "github.com/hupe1980/scego"
	"github.com/hupe1980/scego/device"
)

// cliqueGraph returns two 4-cliques joined by a single weak bridge, with
// unit distances inside the cliques and a distance-8 bridge.
func cliqueGraph() (i, j []uint32, dists []float64) {
	addClique := func(base uint32) {
		for a := base; a < base+4; a++ {
			for b := a + 1; b < base+4; b++ {
				i = append(i, a)
				j = append(j, b)
				dists = append(dists, 1)
			}
		}
	}
	addClique(0)
	addClique(4)
	i = append(i, 0)
	j = append(j, 4)
	dists = append(dists, 8)
	return i, j, dists
}

func testOptions(o *scego.Options) {
	o.MaxIter = 400
	o.Workers = 8
	o.Threads = 1
	o.Perplexity = 3
	o.Seed = 7
}

func TestEmbed(t *testing.T) {
	ctx := context.Background()
	i, j, dists := cliqueGraph()

	res, err := scego.Embed[float64](ctx, i, j, dists, testOptions)
	require.NoError(t, err)

	assert.False(t, res.Animated())
	assert.Equal(t, 0, res.NumFrames())
	assert.Equal(t, 8, res.NumNodes())
	assert.Equal(t, uint64(400), res.Iterations())
	assert.Greater(t, res.Eq(), 0.0)
	assert.Less(t, res.Eq(), 1.0)

	y := res.Embedding()
	require.Len(t, y, 16)
	for _, v := range y {
		require.False(t, math.IsNaN(v))
		require.False(t, math.IsInf(v, 0))
	}

	_, err = res.EmbeddingFrame(0)
	var frameErr *scego.ErrFrameOutOfRange
	require.ErrorAs(t, err, &frameErr)
	_, err = res.EqFrame(0)
	require.ErrorAs(t, err, &frameErr)
}

func TestEmbed_PairConvergence(t *testing.T) {
	ctx := context.Background()

	// Two nodes joined by one edge, starting at separation 2. The pair must
	// settle closer than it started without collapsing onto one point, and
	// the equilibrium value must improve strictly across the run.
	res, err := scego.Embed[float64](ctx, []uint32{0}, []uint32{1}, []float64{1}, func(o *scego.Options) {
		o.MaxIter = 2000
		o.LearningRate = 0.1
		o.Workers = 1
		o.Threads = 1
		o.Perplexity = -1
		o.Seed = 1
		o.InitialEmbedding = []float64{0, 0, 2, 0}
		o.Animated = true
		o.Frames = 20
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.NumNodes())
	require.Equal(t, 20, res.NumFrames())

	y := res.Embedding()
	final := (y[2]-y[0])*(y[2]-y[0]) + (y[3]-y[1])*(y[3]-y[1])
	assert.Greater(t, final, 0.0)
	assert.Less(t, final, 4.0)

	prev, err := res.EqFrame(0)
	require.NoError(t, err)
	require.Equal(t, 1.0, prev)
	for f := 1; f < res.NumFrames(); f++ {
		eq, err := res.EqFrame(f)
		require.NoError(t, err)
		require.Less(t, eq, prev, "frame %d", f)
		prev = eq
	}
	assert.Less(t, res.Eq(), prev)
	assert.Greater(t, res.Eq(), 0.0)
}

func TestEmbed_Deterministic(t *testing.T) {
	ctx := context.Background()
	i, j, dists := cliqueGraph()

	first, err := scego.Embed[float64](ctx, i, j, dists, testOptions)
	require.NoError(t, err)
	second, err := scego.Embed[float64](ctx, i, j, dists, testOptions)
	require.NoError(t, err)

	require.Equal(t, first.Embedding(), second.Embedding())
	require.Equal(t, first.Eq(), second.Eq())

	reseeded, err := scego.Embed[float64](ctx, i, j, dists, testOptions, func(o *scego.Options) {
		o.Seed = 8
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.Embedding(), reseeded.Embedding())
}

func TestEmbed_Float32(t *testing.T) {
	ctx := context.Background()
	i, j, dists := cliqueGraph()

	res, err := scego.Embed[float32](ctx, i, j, dists, testOptions)
	require.NoError(t, err)

	y := res.Embedding()
	require.Len(t, y, 16)
	for _, v := range y {
		require.False(t, math.IsNaN(float64(v)))
	}
	assert.Less(t, res.Eq(), float32(1))
}

func TestEmbed_Animated(t *testing.T) {
	ctx := context.Background()
	i, j, dists := cliqueGraph()

	initial := make([]float64, 16)
	for k := range initial {
		initial[k] = float64(k) * 0.01
	}

	res, err := scego.Embed[float64](ctx, i, j, dists, testOptions, func(o *scego.Options) {
		o.MaxIter = 50
		o.Animated = true
		o.Frames = 5
		o.InitialEmbedding = initial
	})
	require.NoError(t, err)

	assert.True(t, res.Animated())
	require.Equal(t, 5, res.NumFrames())

	// The first frame is the initial layout, captured before any update.
	frame, err := res.EmbeddingFrame(0)
	require.NoError(t, err)
	assert.Equal(t, initial, frame)

	for f := 1; f < res.NumFrames(); f++ {
		frame, err := res.EmbeddingFrame(f)
		require.NoError(t, err)
		require.Len(t, frame, 16)
	}

	// The equilibrium trace is recorded alongside the frames.
	eq0, err := res.EqFrame(0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, eq0)

	var frameErr *scego.ErrFrameOutOfRange
	_, err = res.EmbeddingFrame(5)
	require.ErrorAs(t, err, &frameErr)
	assert.Equal(t, 5, frameErr.Frame)
	assert.Equal(t, 5, frameErr.Frames)

	_, err = res.EmbeddingFrame(-1)
	require.ErrorAs(t, err, &frameErr)
}

func TestEmbed_ParameterValidation(t *testing.T) {
	ctx := context.Background()
	i, j, dists := cliqueGraph()

	tests := []struct {
		name     string
		optFn    func(o *scego.Options)
		wantName string
	}{
		{"zero max iter", func(o *scego.Options) { o.MaxIter = 0 }, "MaxIter"},
		{"zero neg samples", func(o *scego.Options) { o.NegSamples = 0 }, "NegSamples"},
		{"zero learning rate", func(o *scego.Options) { o.LearningRate = 0 }, "LearningRate"},
		{"zero workers", func(o *scego.Options) { o.Workers = 0 }, "Workers"},
		{"zero threads", func(o *scego.Options) { o.Threads = 0 }, "Threads"},
		{"animated without frames", func(o *scego.Options) { o.Animated = true; o.Frames = 0 }, "Frames"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scego.Embed[float64](ctx, i, j, dists, testOptions, tt.optFn)
			var paramErr *scego.ErrInvalidParameter
			require.ErrorAs(t, err, &paramErr)
			assert.Equal(t, tt.wantName, paramErr.Name)
		})
	}
}

func TestEmbed_LengthValidation(t *testing.T) {
	ctx := context.Background()
	i, j, dists := cliqueGraph()

	tests := []struct {
		name     string
		run      func() error
		wantName string
	}{
		{
			name: "endpoint arrays",
			run: func() error {
				_, err := scego.Embed[float64](ctx, i, j[:len(j)-1], dists, testOptions)
				return err
			},
			wantName: "j",
		},
		{
			name: "distances",
			run: func() error {
				_, err := scego.Embed[float64](ctx, i, j, dists[:len(dists)-1], testOptions)
				return err
			},
			wantName: "dists",
		},
		{
			name: "edge weights",
			run: func() error {
				_, err := scego.Embed[float64](ctx, i, j, dists, testOptions, func(o *scego.Options) {
					o.EdgeWeights = []float64{1, 2}
				})
				return err
			},
			wantName: "EdgeWeights",
		},
		{
			name: "node weights",
			run: func() error {
				_, err := scego.Embed[float64](ctx, i, j, dists, testOptions, func(o *scego.Options) {
					o.NodeWeights = []float64{1, 1, 1}
				})
				return err
			},
			wantName: "NodeWeights",
		},
		{
			name: "initial embedding",
			run: func() error {
				_, err := scego.Embed[float64](ctx, i, j, dists, testOptions, func(o *scego.Options) {
					o.InitialEmbedding = []float64{1, 2, 3}
				})
				return err
			},
			wantName: "InitialEmbedding",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			var lenErr *scego.ErrLengthMismatch
			require.ErrorAs(t, err, &lenErr)
			assert.Equal(t, tt.wantName, lenErr.Name)
		})
	}
}

func TestEmbed_GraphValidation(t *testing.T) {
	ctx := context.Background()

	_, err := scego.Embed[float64](ctx, nil, nil, nil, testOptions)
	require.ErrorIs(t, err, scego.ErrNoEdges)

	// A graph whose only records are self loops has no usable edges.
	_, err = scego.Embed[float64](ctx, []uint32{1}, []uint32{1}, []float64{0.5}, testOptions, func(o *scego.Options) {
		o.Perplexity = -1
	})
	require.ErrorIs(t, err, scego.ErrNoEdges)

	// A single node cannot be embedded.
	_, err = scego.Embed[float64](ctx, []uint32{0}, []uint32{0}, []float64{0.5}, testOptions)
	require.ErrorIs(t, err, scego.ErrNotEnoughNodes)
}

func TestEmbed_RawWeights(t *testing.T) {
	ctx := context.Background()
	i, j, dists := cliqueGraph()

	raw := func(o *scego.Options) {
		testOptions(o)
		o.Perplexity = -1
	}

	// Raw distances serve as similarities when calibration is off.
	first, err := scego.Embed[float64](ctx, i, j, dists, raw)
	require.NoError(t, err)

	second, err := scego.Embed[float64](ctx, i, j, dists, raw)
	require.NoError(t, err)
	require.Equal(t, first.Embedding(), second.Embedding())

	// Explicit edge weights replace the distances.
	weights := make([]float64, len(dists))
	for k := range weights {
		weights[k] = 2
	}
	_, err = scego.Embed[float64](ctx, i, j, dists, raw, func(o *scego.Options) {
		o.EdgeWeights = weights
	})
	require.NoError(t, err)

	// Invalid masses are rejected before any worker starts.
	weights[0] = -1
	_, err = scego.Embed[float64](ctx, i, j, dists, raw, func(o *scego.Options) {
		o.EdgeWeights = weights
	})
	var paramErr *scego.ErrInvalidParameter
	require.ErrorAs(t, err, &paramErr)
	assert.Equal(t, "weights", paramErr.Name)
}

func TestEmbed_EdgeWeightScaling(t *testing.T) {
	ctx := context.Background()
	i, j, dists := cliqueGraph()

	plain, err := scego.Embed[float64](ctx, i, j, dists, testOptions)
	require.NoError(t, err)

	// Scaling every pair by 1 leaves the run unchanged.
	ones := make([]float64, len(dists))
	for k := range ones {
		ones[k] = 1
	}
	scaled, err := scego.Embed[float64](ctx, i, j, dists, testOptions, func(o *scego.Options) {
		o.EdgeWeights = ones
	})
	require.NoError(t, err)
	require.Equal(t, plain.Embedding(), scaled.Embedding())

	// A non-uniform scale changes the sampling distribution.
	boosted := make([]float64, len(dists))
	for k := range boosted {
		boosted[k] = 1
	}
	boosted[0] = 50 // pair (0, 1) dominates the attractive draws
	skewed, err := scego.Embed[float64](ctx, i, j, dists, testOptions, func(o *scego.Options) {
		o.EdgeWeights = boosted
	})
	require.NoError(t, err)
	assert.NotEqual(t, plain.Embedding(), skewed.Embedding())
}

func TestEmbed_NodeWeights(t *testing.T) {
	ctx := context.Background()
	i, j, dists := cliqueGraph()

	// Longer node weights extend the graph with isolated trailing nodes.
	nodeWeights := make([]float64, 10)
	for k := range nodeWeights {
		nodeWeights[k] = 1
	}
	res, err := scego.Embed[float64](ctx, i, j, dists, testOptions, func(o *scego.Options) {
		o.NodeWeights = nodeWeights
	})
	require.NoError(t, err)
	assert.Equal(t, 10, res.NumNodes())
	assert.Len(t, res.Embedding(), 20)
}

func TestEmbed_ResultIsReadOnly(t *testing.T) {
	ctx := context.Background()
	i, j, dists := cliqueGraph()

	res, err := scego.Embed[float64](ctx, i, j, dists, testOptions, func(o *scego.Options) {
		o.MaxIter = 50
		o.Animated = true
		o.Frames = 2
	})
	require.NoError(t, err)

	y := res.Embedding()
	y[0] += 1000
	assert.NotEqual(t, y[0], res.Embedding()[0])

	frame, err := res.EmbeddingFrame(1)
	require.NoError(t, err)
	frame[0] += 1000
	again, err := res.EmbeddingFrame(1)
	require.NoError(t, err)
	assert.NotEqual(t, frame[0], again[0])
}

func TestEmbed_Metrics(t *testing.T) {
	ctx := context.Background()
	i, j, dists := cliqueGraph()

	collector := &scego.BasicMetricsCollector{}

	_, err := scego.Embed[float64](ctx, i, j, dists, testOptions, func(o *scego.Options) {
		o.MaxIter = 50
		o.Animated = true
		o.Frames = 5
		o.Metrics = collector
	})
	require.NoError(t, err)

	stats := collector.GetStats()
	assert.Equal(t, int64(1), stats.EmbedCount)
	assert.Equal(t, int64(0), stats.EmbedErrors)
	assert.Equal(t, int64(50), stats.EmbedIterations)
	assert.Equal(t, int64(1), stats.AffinityCount)
	assert.Equal(t, int64(13), stats.AffinityEdges)
	assert.Equal(t, int64(5), stats.FramesCaptured)

	_, err = scego.Embed[float64](ctx, i, j, dists, testOptions, func(o *scego.Options) {
		o.Workers = 0
		o.Metrics = collector
	})
	require.Error(t, err)

	stats = collector.GetStats()
	assert.Equal(t, int64(2), stats.EmbedCount)
	assert.Equal(t, int64(1), stats.EmbedErrors)
}

func TestEmbed_ContextCancelled(t *testing.T) {
	i, j, dists := cliqueGraph()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scego.Embed[float64](ctx, i, j, dists, testOptions)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEmbedOnDevice(t *testing.T) {
	ctx := context.Background()
	i, j, dists := cliqueGraph()

	deviceOptions := func(o *scego.Options) {
		testOptions(o)
		o.BlockSize = 4
		o.HostThreads = 1
	}

	first, err := scego.EmbedOnDevice[float64](ctx, i, j, dists, deviceOptions)
	require.NoError(t, err)
	assert.Equal(t, 8, first.NumNodes())
	assert.Less(t, first.Eq(), 1.0)

	second, err := scego.EmbedOnDevice[float64](ctx, i, j, dists, deviceOptions)
	require.NoError(t, err)
	require.Equal(t, first.Embedding(), second.Embedding())
}

func TestEmbedOnDevice_Errors(t *testing.T) {
	ctx := context.Background()
	i, j, dists := cliqueGraph()

	_, err := scego.EmbedOnDevice[float64](ctx, i, j, dists, testOptions, func(o *scego.Options) {
		o.DeviceID = 99
	})
	require.ErrorIs(t, err, device.ErrDeviceNotFound)

	_, err = scego.EmbedOnDevice[float64](ctx, i, j, dists, testOptions, func(o *scego.Options) {
		o.BlockSize = 0
	})
	require.ErrorIs(t, err, device.ErrLaunchFailed)

	_, err = scego.EmbedOnDevice[float64](ctx, i, j, dists, testOptions, func(o *scego.Options) {
		o.BlockSize = device.MaxBlockSize + 1
	})
	require.ErrorIs(t, err, device.ErrLaunchFailed)
}

func TestEmbedOnDevice_Metrics(t *testing.T) {
	ctx := context.Background()
	i, j, dists := cliqueGraph()

	collector := &scego.BasicMetricsCollector{}
	_, err := scego.EmbedOnDevice[float64](ctx, i, j, dists, testOptions, func(o *scego.Options) {
		o.MaxIter = 50
		o.BlockSize = 4
		o.Metrics = collector
	})
	require.NoError(t, err)

	stats := collector.GetStats()
	assert.Equal(t, int64(1), stats.DeviceEmbedCount)
	assert.Equal(t, int64(50), stats.DeviceEmbedIterations)
	assert.Equal(t, int64(0), stats.EmbedCount)
}
