// Package sce implements the stochastic cluster embedding optimizer: a
// weighted SNE-family layout driven by alias-table sampling of attractive
// edges and random repulsive node pairs.
//
// The CPU path runs an outer sequential iteration loop. Each iteration fans
// a fixed number of logical workers out over a long-lived goroutine pool in
// static chunks. Workers apply their force updates directly to the shared
// embedding buffer without locks (Hogwild); the rare lost update is traded
// for zero contention. Every logical worker owns a private RNG stream
// derived from the root seed, so its draw sequence does not depend on the
// goroutine count. With Threads=1 the chunks execute sequentially and a run
// is bit-for-bit reproducible.
//
// The normalizer estimate Eq is a running weighted average over every kernel
// value sampled so far, seeded with prior mass n*(n-1) at 1. It appears in
// the repulsive coefficient and is reported as the final equilibrium value.
package sce

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/scego/internal/alias"
	"github.com/hupe1980/scego/internal/rng"
)

// Config carries the validated inputs of one optimization run. Callers
// resolve defaults and validate before handing it over; the optimizer trusts
// edge node ids to be in range and arrays to be consistent.
type Config struct {
	// Nodes is the number of embedded nodes.
	Nodes int

	// I, J are the edge endpoints, canonicalized so that I[e] != J[e].
	I, J []uint32

	// EdgeWeights is the attractive sampling mass per edge.
	EdgeWeights []float64

	// NodeWeights is the repulsive sampling mass per node.
	NodeWeights []float64

	// MaxIter is the fixed iteration budget.
	MaxIter uint64

	// NegSamples is the number of repulsive draws per worker per iteration.
	NegSamples int

	// Eta0 is the initial learning rate; it decays linearly to zero.
	Eta0 float64

	// EarlyExaggeration quadruples the attractive coefficient for the first
	// tenth of the run.
	EarlyExaggeration bool

	// Workers is the number of logical workers per iteration.
	Workers int

	// Threads is the goroutine pool size the workers are chunked over.
	Threads int

	// Seed is the root seed for layout initialization and all streams.
	Seed int64

	// InitialEmbedding, when non-nil, replaces the random scatter. Length
	// 2*Nodes, row-major (x, y) pairs.
	InitialEmbedding []float64

	// Animated captures Frames snapshots spread evenly over the run.
	Animated bool
	Frames   int

	// Logger configures structured logging. Nil disables logging.
	Logger *slog.Logger
}

// Output is the raw result of a run.
type Output[T Float] struct {
	// Embedding is the final layout, row-major (x, y) pairs.
	Embedding []T

	// Eq is the final normalizer estimate, in (0, 1] and below 1 whenever
	// any pair was sampled.
	Eq T

	// Frames holds the animation snapshots in capture order, empty unless
	// animated.
	Frames [][]T

	// EqFrames holds the normalizer estimate at each frame capture, parallel
	// to Frames.
	EqFrames []T

	// Iterations is the completed iteration count.
	Iterations uint64
}

const (
	attrDefault = 2.0
	attrExagg   = 8.0
	initScale   = 1e-4

	// maxRedraws bounds how often a repulsive draw re-rolls its second node
	// when both draws land on the same one. A draw that still collides after
	// that is dropped, which can only happen when the node weights are
	// concentrated on a single node.
	maxRedraws = 16
)

// Run executes the optimizer on the CPU and returns the final layout.
func Run[T Float](ctx context.Context, cfg Config) (*Output[T], error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	edges, err := alias.New(cfg.EdgeWeights)
	if err != nil {
		return nil, fmt.Errorf("edge table: %w", err)
	}
	nodes, err := alias.New(cfg.NodeWeights)
	if err != nil {
		return nil, fmt.Errorf("node table: %w", err)
	}

	y := initEmbedding[T](cfg)
	schedule := frameSchedule(cfg)

	streams := make([]*rand.Rand, cfg.Workers)
	for w := range streams {
		streams[w] = rng.NewStream(cfg.Seed, uint64(w))
	}

	pool := NewWorkerPool(cfg.Threads)
	defer pool.Close()

	chunkSize := (cfg.Workers + cfg.Threads - 1) / cfg.Threads
	numChunks := (cfg.Workers + chunkSize - 1) / chunkSize

	// Iteration state shared with the chunk closures. Writes happen before
	// the chunks are submitted and reads before the iteration joins, so the
	// pool's channel provides the ordering.
	var (
		wg       sync.WaitGroup
		eta      T
		attrCoef T
		repuCoef T
	)
	qsums := make([]T, numChunks)
	qcounts := make([]uint64, numChunks)

	tasks := make([]func(), numChunks)
	for c := 0; c < numChunks; c++ {
		slot := c
		lo := c * chunkSize
		hi := min(lo+chunkSize, cfg.Workers)
		tasks[slot] = func() {
			defer wg.Done()

			var qsum T
			var qcount uint64
			for w := lo; w < hi; w++ {
				r := streams[w]

				e := edges.Draw(r.Float64(), r.Float64())
				i, j := int(cfg.I[e]), int(cfg.J[e])
				if i != j {
					qsum += attractiveStep(y, i, j, eta, attrCoef)
					qcount++
				}

				for s := 0; s < cfg.NegSamples; s++ {
					k := int(nodes.Draw(r.Float64(), r.Float64()))
					l := int(nodes.Draw(r.Float64(), r.Float64()))
					for attempt := 0; k == l && attempt < maxRedraws; attempt++ {
						l = int(nodes.Draw(r.Float64(), r.Float64()))
					}
					if k == l {
						continue
					}
					qsum += repulsiveStep(y, k, l, eta, repuCoef)
					qcount++
				}
			}
			qsums[slot] = qsum
			qcounts[slot] = qcount
		}
	}

	logger.DebugContext(ctx, "optimizer starting",
		"nodes", cfg.Nodes,
		"edges", len(cfg.EdgeWeights),
		"iterations", cfg.MaxIter,
		"workers", cfg.Workers,
		"threads", cfg.Threads,
	)

	var frames [][]T
	var eqFrames []T
	if cfg.Animated {
		frames = make([][]T, 0, len(schedule))
		eqFrames = make([]T, 0, len(schedule))
	}
	nextFrame := 0

	// Eq is a weighted average over all sampled kernel values, with prior
	// mass n*(n-1) at 1. The prior's share shrinks as samples accumulate.
	eq := T(1)
	mass := T(float64(cfg.Nodes) * float64(cfg.Nodes-1))
	exaggerationEnd := cfg.MaxIter / 10
	progress := rate.NewLimiter(rate.Every(time.Second), 1)
	start := time.Now()

	for iter := uint64(0); iter < cfg.MaxIter; iter++ {
		if cfg.Animated && nextFrame < len(schedule) && schedule[nextFrame] == iter {
			frames = append(frames, snapshot(y))
			eqFrames = append(eqFrames, eq)
			nextFrame++
		}

		eta = T(cfg.Eta0 * (1 - float64(iter)/float64(cfg.MaxIter)))
		attrCoef = T(attrDefault)
		if cfg.EarlyExaggeration && iter < exaggerationEnd {
			attrCoef = T(attrExagg)
		}
		repuCoef = 2 / (eq * T(cfg.NegSamples))

		wg.Add(numChunks)
		for _, task := range tasks {
			if err := pool.Submit(task); err != nil {
				return nil, err
			}
		}
		wg.Wait()

		var qsum T
		var qcount uint64
		for s := 0; s < numChunks; s++ {
			qsum += qsums[s]
			qcount += qcounts[s]
		}
		eq = (eq*mass + qsum) / (mass + T(qcount))
		mass += T(qcount)

		if progress.Allow() {
			logger.DebugContext(ctx, "optimizer progress",
				"iteration", iter,
				"eta", float64(eta),
				"eq", float64(eq),
			)
		}
	}

	logger.DebugContext(ctx, "optimizer finished",
		"iterations", cfg.MaxIter,
		"eq", float64(eq),
		"duration", time.Since(start),
	)

	return &Output[T]{
		Embedding:  y,
		Eq:         eq,
		Frames:     frames,
		EqFrames:   eqFrames,
		Iterations: cfg.MaxIter,
	}, nil
}

// initEmbedding builds the starting layout: the caller's coordinates
// verbatim, or a small uniform scatter from the root seed stream.
func initEmbedding[T Float](cfg Config) []T {
	y := make([]T, 2*cfg.Nodes)
	if cfg.InitialEmbedding != nil {
		for k, v := range cfg.InitialEmbedding {
			y[k] = T(v)
		}
		return y
	}

	r := rng.New(cfg.Seed)
	for k := range y {
		y[k] = T(r.Float64() * initScale)
	}
	return y
}

// frameSchedule returns the sorted unique iterations at which snapshots are
// captured: floor(f*MaxIter/Frames) for f in [0, Frames). Short runs
// collapse duplicates, capping the frame count at MaxIter.
func frameSchedule(cfg Config) []uint64 {
	if !cfg.Animated || cfg.Frames <= 0 {
		return nil
	}

	schedule := make([]uint64, 0, cfg.Frames)
	for f := 0; f < cfg.Frames; f++ {
		it := uint64(f) * cfg.MaxIter / uint64(cfg.Frames)
		if len(schedule) > 0 && schedule[len(schedule)-1] == it {
			continue
		}
		schedule = append(schedule, it)
	}
	return schedule
}

func snapshot[T Float](y []T) []T {
	out := make([]T, len(y))
	copy(out, y)
	return out
}
