package testutil

import (
	"math/rand"
	"sync"
)

// RNG is a seeded random source safe for concurrent use. Tests share one
// instance across helpers so a single seed pins the whole fixture.
type RNG struct {
	mu   sync.Mutex
	rand *rand.Rand
	seed int64
}

// NewRNG creates a generator with the given seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset rewinds the generator to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0, 1).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// FillUniform fills dst with values in [0, 1). One lock per call, not
// per element.
func (r *RNG) FillUniform(dst []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range dst {
		dst[k] = r.rand.Float64()
	}
}

// FillUniformRange fills dst with values in [lo, hi).
func (r *RNG) FillUniformRange(dst []float64, lo, hi float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	span := hi - lo
	for k := range dst {
		dst[k] = lo + r.rand.Float64()*span
	}
}

// FillGaussian fills dst with standard normal values.
func (r *RNG) FillGaussian(dst []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range dst {
		dst[k] = r.rand.NormFloat64()
	}
}

// Layout returns a fresh uniform random embedding buffer for n nodes,
// scaled to the small initial scatter the optimizer uses.
func (r *RNG) Layout(n int) []float64 {
	y := make([]float64, 2*n)
	r.FillUniform(y)
	for k := range y {
		y[k] *= 1e-4
	}
	return y
}

var bases = []byte{'A', 'C', 'G', 'T'}

// RandomAlignment builds rows aligned sequences of the given length.
// Each row mutates a shared ancestral sequence at the given rate, so
// pairwise distances stay small and roughly uniform. Rate 0 yields
// identical rows.
func RandomAlignment(r *RNG, rows, length int, rate float64) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	ancestor := make([]byte, length)
	for k := range ancestor {
		ancestor[k] = bases[r.rand.Intn(4)]
	}

	aln := make([][]byte, rows)
	for s := range aln {
		row := make([]byte, length)
		copy(row, ancestor)
		for k := range row {
			if r.rand.Float64() < rate {
				row[k] = bases[r.rand.Intn(4)]
			}
		}
		aln[s] = row
	}
	return aln
}

// RingGraph returns the edges of an n-cycle with unit distances, the
// smallest connected graph where every node has two neighbors.
func RingGraph(n int) (i, j []uint32, dists []float64) {
	i = make([]uint32, n)
	j = make([]uint32, n)
	dists = make([]float64, n)
	for k := 0; k < n; k++ {
		i[k] = uint32(k)
		j[k] = uint32((k + 1) % n)
		dists[k] = 1
	}
	return i, j, dists
}

// DrawFrequencies counts how often draw returns each index over trials
// draws and returns the empirical distribution. Used to check samplers
// against their target weights.
func DrawFrequencies(draw func() int, n, trials int) []float64 {
	counts := make([]float64, n)
	for t := 0; t < trials; t++ {
		counts[draw()]++
	}
	for k := range counts {
		counts[k] /= float64(trials)
	}
	return counts
}
