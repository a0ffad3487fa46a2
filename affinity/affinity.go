// Package affinity converts raw pairwise distances into symmetric similarity
// weights calibrated to a target perplexity.
//
// For every node the conditional neighbor distribution p(j|i) follows an
// exponential kernel exp(-d*beta) whose bandwidth beta is solved per row by
// bounded bisection, so the row's entropy-derived effective neighbor count
// matches the requested perplexity within tolerance. Rows where the search
// cannot converge (single neighbor, zero-variance distances) fall back to
// uniform weights rather than failing.
//
// The directed conditionals are then symmetrized per unordered pair,
// w{i,j} = p(j|i) + p(i|j), and returned deduplicated in canonical order.
package affinity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

const (
	// defaultMaxSteps bounds the bisection per row.
	defaultMaxSteps = 100

	// defaultTolerance is the acceptable entropy gap to the target.
	defaultTolerance = 1e-5

	// sumFloor replaces an all-underflowed kernel sum so the search can
	// steer the bandwidth back down instead of dividing by zero.
	sumFloor = 1e-8
)

var (
	// ErrInvalidPerplexity is returned when perplexity is not positive.
	ErrInvalidPerplexity = errors.New("affinity: perplexity must be positive")

	// ErrLengthMismatch is returned when the edge arrays differ in length.
	ErrLengthMismatch = errors.New("affinity: edge arrays must have equal length")

	// ErrNodeOutOfRange is returned when an endpoint is outside [0, n).
	ErrNodeOutOfRange = errors.New("affinity: node index out of range")
)

// Options represents the options for configuring calibration.
type Options struct {
	// MaxSteps bounds the bisection search per row.
	MaxSteps int

	// Tolerance is the acceptable |entropy - log(perplexity)| gap.
	Tolerance float64

	// Threads is the number of goroutines calibrating rows.
	Threads int

	// Logger configures structured logging. Nil disables logging.
	Logger *slog.Logger
}

// DefaultOptions are the options applied before any option functions run.
var DefaultOptions = Options{
	MaxSteps:  defaultMaxSteps,
	Tolerance: defaultTolerance,
	Threads:   1,
}

// Weights holds symmetric calibrated edge weights, one entry per unordered
// pair, in canonical order (I[k] < J[k], sorted).
type Weights struct {
	I []uint32
	J []uint32
	W []float64
}

// Len returns the number of undirected edges.
func (w *Weights) Len() int {
	return len(w.W)
}

// Calibrate computes symmetric similarity weights for the directed edge list
// (i[k], j[k], dists[k]) over n nodes. The result is independent of Threads.
func Calibrate(ctx context.Context, i, j []uint32, dists []float64, n int, perplexity float64, optFns ...func(o *Options)) (*Weights, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = defaultMaxSteps
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = defaultTolerance
	}
	if opts.Threads <= 0 {
		opts.Threads = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if perplexity <= 0 {
		return nil, ErrInvalidPerplexity
	}
	if len(i) != len(j) || len(i) != len(dists) {
		return nil, ErrLengthMismatch
	}

	// Group directed records by source row (CSR layout). Self pairs carry no
	// neighbor information and are dropped.
	counts := make([]int, n+1)
	for k := range i {
		if int(i[k]) >= n || int(j[k]) >= n {
			return nil, fmt.Errorf("%w: (%d, %d) with n=%d", ErrNodeOutOfRange, i[k], j[k], n)
		}
		if i[k] == j[k] {
			continue
		}
		counts[i[k]+1]++
	}
	offsets := make([]int, n+1)
	for r := 0; r < n; r++ {
		offsets[r+1] = offsets[r] + counts[r+1]
	}
	total := offsets[n]

	cols := make([]uint32, total)
	rowDists := make([]float64, total)
	fill := make([]int, n)
	for k := range i {
		if i[k] == j[k] {
			continue
		}
		r := i[k]
		pos := offsets[r] + fill[r]
		cols[pos] = j[k]
		rowDists[pos] = dists[k]
		fill[r]++
	}

	probs := make([]float64, total)
	target := math.Log(perplexity)

	var unconverged atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	block := (n + opts.Threads - 1) / opts.Threads
	for w := 0; w < opts.Threads; w++ {
		lo := w * block
		hi := min(lo+block, n)
		if lo >= hi {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for r := lo; r < hi; r++ {
				if !calibrateRow(rowDists[offsets[r]:offsets[r+1]], probs[offsets[r]:offsets[r+1]], target, opts.MaxSteps, opts.Tolerance) {
					unconverged.Add(1)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if u := unconverged.Load(); u > 0 {
		logger.DebugContext(ctx, "perplexity search used best-effort bandwidth",
			"rows", u,
			"perplexity", perplexity,
		)
	}

	return symmetrize(cols, offsets, probs, n), nil
}

// calibrateRow solves the kernel bandwidth for one row in place and writes
// the normalized conditionals into p. Returns false when the entropy target
// was not reached within maxSteps (the best-effort values are still valid).
func calibrateRow(d []float64, p []float64, target float64, maxSteps int, tol float64) bool {
	m := len(d)
	if m == 0 {
		return true
	}
	if m == 1 {
		p[0] = 1
		return true
	}

	beta := 1.0
	betaMin := math.Inf(-1)
	betaMax := math.Inf(1)
	converged := false

	var sum float64
	for step := 0; step < maxSteps; step++ {
		sum = 0
		for k := 0; k < m; k++ {
			p[k] = math.Exp(-d[k] * beta)
			sum += p[k]
		}
		if sum <= 0 {
			sum = sumFloor
		}

		var weighted float64
		for k := 0; k < m; k++ {
			p[k] /= sum
			weighted += d[k] * p[k]
		}

		entropy := math.Log(sum) + beta*weighted
		diff := entropy - target
		if math.Abs(diff) <= tol {
			converged = true
			break
		}

		if diff > 0 {
			betaMin = beta
			if math.IsInf(betaMax, 1) {
				beta *= 2
			} else {
				beta = (beta + betaMax) / 2
			}
		} else {
			betaMax = beta
			if math.IsInf(betaMin, -1) {
				beta /= 2
			} else {
				beta = (beta + betaMin) / 2
			}
		}
	}

	if sum <= sumFloor {
		// Kernel underflowed everywhere; fall back to a uniform row.
		for k := 0; k < m; k++ {
			p[k] = 1 / float64(m)
		}
	}
	return converged
}

// symmetrize folds directed conditionals into undirected weights,
// deduplicated per unordered pair and sorted canonically.
func symmetrize(cols []uint32, offsets []int, probs []float64, n int) *Weights {
	acc := make(map[uint64]float64, len(cols))
	for r := 0; r < n; r++ {
		for pos := offsets[r]; pos < offsets[r+1]; pos++ {
			a, b := uint32(r), cols[pos]
			if a > b {
				a, b = b, a
			}
			acc[uint64(a)<<32|uint64(b)] += probs[pos]
		}
	}

	keys := make([]uint64, 0, len(acc))
	for k := range acc {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a] < keys[b] })

	out := &Weights{
		I: make([]uint32, len(keys)),
		J: make([]uint32, len(keys)),
		W: make([]float64, len(keys)),
	}
	for idx, k := range keys {
		out.I[idx] = uint32(k >> 32)
		out.J[idx] = uint32(k & 0xffffffff)
		out.W[idx] = acc[k]
	}
	return out
}
