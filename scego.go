package scego

import (
	"context"
	"sort"
	"time"

	"github.com/hupe1980/scego/affinity"
	"github.com/hupe1980/scego/device"
	"github.com/hupe1980/scego/internal/sce"
)

// Float is the precision set supported by embedding runs.
type Float interface {
	~float32 | ~float64
}

// Embed computes a two-dimensional stochastic cluster embedding of the
// sparse distance graph (i[k], j[k], dists[k]) on the CPU.
//
// With the default positive Perplexity the distances are first calibrated
// into similarity weights; with Perplexity <= 0 the supplied EdgeWeights
// (or, failing that, the raw distances) are used as similarities directly.
// The node count is the highest endpoint id plus one, or len(NodeWeights)
// when node weights are supplied.
//
// The type parameter selects the arithmetic precision of the whole run.
func Embed[T Float](ctx context.Context, i, j []uint32, dists []float64, optFns ...func(o *Options)) (*Result[T], error) {
	opts := applyOptions(optFns)
	logger := opts.Logger.WithSeed(opts.Seed).WithWorkers(opts.Workers)

	start := time.Now()
	res, err := embed[T](ctx, i, j, dists, &opts)
	duration := time.Since(start)

	var iterations uint64
	var eq float64
	if res != nil {
		iterations = res.Iterations()
		eq = float64(res.Eq())
		opts.Metrics.RecordFrames(res.NumFrames())
	}
	opts.Metrics.RecordEmbed(iterations, duration, err)
	logger.LogRun(ctx, iterations, eq, duration, err)

	if err != nil {
		return nil, translateError(err)
	}

	return res, nil
}

// EmbedOnDevice computes the same embedding as Embed on an in-process
// accelerator. BlockSize sets the threads-per-block geometry, DeviceID
// selects the accelerator, and HostThreads bounds concurrent block
// execution. Device failures (unknown device, memory budget, launch
// geometry) surface as the device package's sentinel errors; there is no
// silent CPU fallback.
func EmbedOnDevice[T Float](ctx context.Context, i, j []uint32, dists []float64, optFns ...func(o *Options)) (*Result[T], error) {
	opts := applyOptions(optFns)
	logger := opts.Logger.WithSeed(opts.Seed).WithDevice(opts.DeviceID)

	start := time.Now()
	res, err := embedOnDevice[T](ctx, i, j, dists, &opts)
	duration := time.Since(start)

	var iterations uint64
	var eq float64
	if res != nil {
		iterations = res.Iterations()
		eq = float64(res.Eq())
		opts.Metrics.RecordFrames(res.NumFrames())
	}
	opts.Metrics.RecordDeviceEmbed(iterations, duration, err)
	logger.LogRun(ctx, iterations, eq, duration, err)

	if err != nil {
		return nil, translateError(err)
	}

	return res, nil
}

func embed[T Float](ctx context.Context, i, j []uint32, dists []float64, opts *Options) (*Result[T], error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	cfg, err := prepare(ctx, i, j, dists, opts)
	if err != nil {
		return nil, err
	}

	out, err := sce.Run[T](ctx, cfg)
	if err != nil {
		return nil, err
	}

	return newResult(out, opts.Animated, cfg.Nodes), nil
}

func embedOnDevice[T Float](ctx context.Context, i, j []uint32, dists []float64, opts *Options) (*Result[T], error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	dev, err := device.Select(opts.DeviceID)
	if err != nil {
		return nil, err
	}

	cfg, err := prepare(ctx, i, j, dists, opts)
	if err != nil {
		return nil, err
	}

	out, err := sce.RunOnDevice[T](ctx, cfg, sce.DeviceConfig{
		Device:      dev,
		BlockSize:   opts.BlockSize,
		HostThreads: opts.HostThreads,
	})
	if err != nil {
		return nil, err
	}

	return newResult(out, opts.Animated, cfg.Nodes), nil
}

func validateOptions(opts *Options) error {
	if opts.MaxIter == 0 {
		return &ErrInvalidParameter{Name: "MaxIter", Reason: "must be positive"}
	}
	if opts.NegSamples <= 0 {
		return &ErrInvalidParameter{Name: "NegSamples", Reason: "must be positive"}
	}
	if opts.LearningRate <= 0 {
		return &ErrInvalidParameter{Name: "LearningRate", Reason: "must be positive"}
	}
	if opts.Workers <= 0 {
		return &ErrInvalidParameter{Name: "Workers", Reason: "must be positive"}
	}
	if opts.Threads <= 0 {
		return &ErrInvalidParameter{Name: "Threads", Reason: "must be positive"}
	}
	if opts.Animated && opts.Frames <= 0 {
		return &ErrInvalidParameter{Name: "Frames", Reason: "must be positive when animation is enabled"}
	}
	return nil
}

// prepare validates the graph, resolves the edge masses (calibrated or raw),
// and assembles the optimizer config. All validation happens here, before
// any worker starts.
func prepare(ctx context.Context, i, j []uint32, dists []float64, opts *Options) (sce.Config, error) {
	var cfg sce.Config

	if len(j) != len(i) {
		return cfg, &ErrLengthMismatch{Name: "j", Expected: len(i), Actual: len(j)}
	}
	if len(dists) != len(i) {
		return cfg, &ErrLengthMismatch{Name: "dists", Expected: len(i), Actual: len(dists)}
	}
	if opts.EdgeWeights != nil && len(opts.EdgeWeights) != len(i) {
		return cfg, &ErrLengthMismatch{Name: "EdgeWeights", Expected: len(i), Actual: len(opts.EdgeWeights)}
	}
	if len(i) == 0 {
		return cfg, ErrNoEdges
	}

	var maxID uint32
	for k := range i {
		if i[k] > maxID {
			maxID = i[k]
		}
		if j[k] > maxID {
			maxID = j[k]
		}
	}
	n := int(maxID) + 1
	if opts.NodeWeights != nil {
		if len(opts.NodeWeights) < n {
			return cfg, &ErrLengthMismatch{Name: "NodeWeights", Expected: n, Actual: len(opts.NodeWeights)}
		}
		n = len(opts.NodeWeights)
	}
	if n < 2 {
		return cfg, ErrNotEnoughNodes
	}
	if opts.InitialEmbedding != nil && len(opts.InitialEmbedding) != 2*n {
		return cfg, &ErrLengthMismatch{Name: "InitialEmbedding", Expected: 2 * n, Actual: len(opts.InitialEmbedding)}
	}

	var eI, eJ []uint32
	var eW []float64
	if opts.Perplexity > 0 {
		logger := opts.Logger.WithNodes(n)

		start := time.Now()
		weights, err := affinity.Calibrate(ctx, i, j, dists, n, opts.Perplexity, func(o *affinity.Options) {
			o.Threads = opts.Threads
			o.Logger = logger.Logger
		})
		edges := 0
		if weights != nil {
			edges = weights.Len()
		}
		opts.Metrics.RecordAffinities(edges, time.Since(start), err)
		logger.LogAffinities(ctx, edges, opts.Perplexity, err)
		if err != nil {
			return cfg, err
		}

		eI, eJ, eW = weights.I, weights.J, weights.W
		if opts.EdgeWeights != nil {
			scaleEdges(eI, eJ, eW, i, j, opts.EdgeWeights)
		}
	} else {
		mass := opts.EdgeWeights
		if mass == nil {
			mass = dists
		}
		eI, eJ, eW = canonicalEdges(i, j, mass)
	}
	if len(eW) == 0 {
		return cfg, ErrNoEdges
	}

	nodeWeights := opts.NodeWeights
	if nodeWeights == nil {
		nodeWeights = make([]float64, n)
		for k := range nodeWeights {
			nodeWeights[k] = 1
		}
	}

	return sce.Config{
		Nodes:             n,
		I:                 eI,
		J:                 eJ,
		EdgeWeights:       eW,
		NodeWeights:       nodeWeights,
		MaxIter:           opts.MaxIter,
		NegSamples:        opts.NegSamples,
		Eta0:              opts.LearningRate,
		EarlyExaggeration: opts.EarlyExaggeration,
		Workers:           opts.Workers,
		Threads:           opts.Threads,
		Seed:              opts.Seed,
		InitialEmbedding:  opts.InitialEmbedding,
		Animated:          opts.Animated,
		Frames:            opts.Frames,
		Logger:            opts.Logger.Logger,
	}, nil
}

func pairKey(a, b uint32) uint64 {
	if b < a {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}

// canonicalEdges folds a directed edge list with raw masses into unordered
// pairs: self loops dropped, duplicate records summed, output sorted by
// (i, j) with i < j.
func canonicalEdges(i, j []uint32, mass []float64) ([]uint32, []uint32, []float64) {
	acc := make(map[uint64]float64, len(i))
	for k := range i {
		if i[k] == j[k] {
			continue
		}
		acc[pairKey(i[k], j[k])] += mass[k]
	}

	keys := make([]uint64, 0, len(acc))
	for key := range acc {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a] < keys[b] })

	outI := make([]uint32, len(keys))
	outJ := make([]uint32, len(keys))
	outW := make([]float64, len(keys))
	for k, key := range keys {
		outI[k] = uint32(key >> 32)
		outJ[k] = uint32(key)
		outW[k] = acc[key]
	}
	return outI, outJ, outW
}

// scaleEdges multiplies calibrated pair weights by the mean of the supplied
// per-record weights for that pair, so the scale does not depend on record
// order or direction.
func scaleEdges(eI, eJ []uint32, eW []float64, i, j []uint32, weights []float64) {
	type agg struct {
		sum   float64
		count int
	}
	scale := make(map[uint64]agg, len(i))
	for k := range i {
		if i[k] == j[k] {
			continue
		}
		key := pairKey(i[k], j[k])
		a := scale[key]
		a.sum += weights[k]
		a.count++
		scale[key] = a
	}

	for k := range eW {
		if a, ok := scale[pairKey(eI[k], eJ[k])]; ok && a.count > 0 {
			eW[k] *= a.sum / float64(a.count)
		}
	}
}
