package sce

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/scego/device"
	"github.com/hupe1980/scego/internal/alias"
	"github.com/hupe1980/scego/internal/rng"
)

// DeviceConfig selects the accelerator and the kernel launch geometry.
type DeviceConfig struct {
	// Device is the target accelerator.
	Device *device.Device

	// BlockSize is the number of threads per block. Workers are spread over
	// ceil(Workers/BlockSize) blocks; threads past Workers idle.
	BlockSize int

	// HostThreads bounds how many blocks execute concurrently on the host.
	HostThreads int
}

// RunOnDevice executes the optimizer on an accelerator. The kernel bodies
// are the same per-sample force functions as the CPU path; only the
// scheduling differs. Each device thread owns a value-type RNG stream seeded
// from the root seed and its global thread index, and thread 0 folds the
// sampled kernel values into Eq between rounds.
func RunOnDevice[T Float](ctx context.Context, cfg Config, dcfg DeviceConfig) (*Output[T], error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	launchCfg := device.LaunchConfig{
		Blocks:      1,
		BlockSize:   dcfg.BlockSize,
		HostThreads: dcfg.HostThreads,
	}
	if err := launchCfg.Validate(); err != nil {
		return nil, err
	}
	launchCfg.Blocks = (cfg.Workers + dcfg.BlockSize - 1) / dcfg.BlockSize
	foldCfg := device.LaunchConfig{Blocks: 1, BlockSize: 1, HostThreads: 1}
	total := launchCfg.Blocks * dcfg.BlockSize

	// The alias tables are read-only during the run and stay host-side,
	// standing in for constant memory.
	edges, err := alias.New(cfg.EdgeWeights)
	if err != nil {
		return nil, fmt.Errorf("edge table: %w", err)
	}
	nodes, err := alias.New(cfg.NodeWeights)
	if err != nil {
		return nil, fmt.Errorf("node table: %w", err)
	}

	dev := dcfg.Device

	yBuf, err := device.Alloc[T](dev, 2*cfg.Nodes)
	if err != nil {
		return nil, fmt.Errorf("embedding buffer: %w", err)
	}
	defer yBuf.Free()

	stBuf, err := device.Alloc[rng.State](dev, total)
	if err != nil {
		return nil, fmt.Errorf("rng state buffer: %w", err)
	}
	defer stBuf.Free()

	qsBuf, err := device.Alloc[T](dev, total)
	if err != nil {
		return nil, fmt.Errorf("kernel sum buffer: %w", err)
	}
	defer qsBuf.Free()

	qcBuf, err := device.Alloc[uint64](dev, total)
	if err != nil {
		return nil, fmt.Errorf("kernel count buffer: %w", err)
	}
	defer qcBuf.Free()

	eqBuf, err := device.Alloc[T](dev, 1)
	if err != nil {
		return nil, fmt.Errorf("normalizer buffer: %w", err)
	}
	defer eqBuf.Free()

	msBuf, err := device.Alloc[T](dev, 1)
	if err != nil {
		return nil, fmt.Errorf("normalizer mass buffer: %w", err)
	}
	defer msBuf.Free()

	yBuf.CopyFrom(initEmbedding[T](cfg))
	eqBuf.CopyFrom([]T{1})
	msBuf.CopyFrom([]T{T(float64(cfg.Nodes) * float64(cfg.Nodes-1))})

	y := yBuf.Data()
	states := stBuf.Data()
	qs := qsBuf.Data()
	qc := qcBuf.Data()
	eqv := eqBuf.Data()
	msv := msBuf.Data()

	// Launches below run on the background context: the run executes its
	// fixed iteration budget once started.
	runCtx := context.Background()

	blockSize := dcfg.BlockSize
	if err := dev.Launch(runCtx, launchCfg, func(block, thread int) {
		g := block*blockSize + thread
		states[g] = rng.NewState(cfg.Seed, uint64(g))
	}); err != nil {
		return nil, err
	}

	logger.DebugContext(ctx, "device optimizer starting",
		"device", dev.Name(),
		"nodes", cfg.Nodes,
		"edges", len(cfg.EdgeWeights),
		"iterations", cfg.MaxIter,
		"workers", cfg.Workers,
		"blocks", launchCfg.Blocks,
		"block_size", blockSize,
	)

	schedule := frameSchedule(cfg)
	var frames [][]T
	var eqFrames []T
	if cfg.Animated {
		frames = make([][]T, 0, len(schedule))
		eqFrames = make([]T, 0, len(schedule))
	}
	nextFrame := 0

	workers := cfg.Workers
	exaggerationEnd := cfg.MaxIter / 10
	progress := rate.NewLimiter(rate.Every(time.Second), 1)
	start := time.Now()

	for iter := uint64(0); iter < cfg.MaxIter; iter++ {
		if cfg.Animated && nextFrame < len(schedule) && schedule[nextFrame] == iter {
			frame := make([]T, len(y))
			yBuf.CopyTo(frame)
			frames = append(frames, frame)
			eqFrames = append(eqFrames, eqv[0])
			nextFrame++
		}

		eta := T(cfg.Eta0 * (1 - float64(iter)/float64(cfg.MaxIter)))
		attrCoef := T(attrDefault)
		if cfg.EarlyExaggeration && iter < exaggerationEnd {
			attrCoef = T(attrExagg)
		}

		if err := dev.Launch(runCtx, launchCfg, func(block, thread int) {
			g := block*blockSize + thread
			if g >= workers {
				return
			}
			st := &states[g]

			eq := eqv[0]
			repuCoef := 2 / (eq * T(cfg.NegSamples))

			var qsum T
			var qcount uint64

			e := edges.Draw(st.Float64(), st.Float64())
			i, j := int(cfg.I[e]), int(cfg.J[e])
			if i != j {
				qsum += attractiveStep(y, i, j, eta, attrCoef)
				qcount++
			}

			for s := 0; s < cfg.NegSamples; s++ {
				k := int(nodes.Draw(st.Float64(), st.Float64()))
				l := int(nodes.Draw(st.Float64(), st.Float64()))
				for attempt := 0; k == l && attempt < maxRedraws; attempt++ {
					l = int(nodes.Draw(st.Float64(), st.Float64()))
				}
				if k == l {
					continue
				}
				qsum += repulsiveStep(y, k, l, eta, repuCoef)
				qcount++
			}

			qs[g] = qsum
			qc[g] = qcount
		}); err != nil {
			return nil, err
		}

		// Thread 0 folds the round's samples into the running average.
		if err := dev.Launch(runCtx, foldCfg, func(_, _ int) {
			var qsum T
			var qcount uint64
			for g := range qs {
				qsum += qs[g]
				qcount += qc[g]
			}
			mass := msv[0]
			eqv[0] = (eqv[0]*mass + qsum) / (mass + T(qcount))
			msv[0] = mass + T(qcount)
		}); err != nil {
			return nil, err
		}

		if progress.Allow() {
			logger.DebugContext(ctx, "device optimizer progress",
				"iteration", iter,
				"eta", float64(eta),
				"eq", float64(eqv[0]),
			)
		}
	}

	out := make([]T, 2*cfg.Nodes)
	yBuf.CopyTo(out)
	eq := eqv[0]

	logger.DebugContext(ctx, "device optimizer finished",
		"iterations", cfg.MaxIter,
		"eq", float64(eq),
		"duration", time.Since(start),
	)

	return &Output[T]{
		Embedding:  out,
		Eq:         eq,
		Frames:     frames,
		EqFrames:   eqFrames,
		Iterations: cfg.MaxIter,
	}, nil
}
