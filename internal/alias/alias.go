// Package alias implements Vose's alias method for O(1) weighted sampling.
//
// A Table is built once in O(n) over a weight vector and afterwards serves
// draws proportional to those weights using two uniform variates per draw.
// Tables are immutable and safe for any number of concurrent readers, which
// is what lets every optimizer worker share one table without locks.
package alias

import (
	"errors"
	"math"
)

var (
	// ErrNoWeights is returned when the weight vector is empty.
	ErrNoWeights = errors.New("alias: no weights")

	// ErrZeroMass is returned when the weights sum to zero.
	ErrZeroMass = errors.New("alias: total weight mass is zero")

	// ErrBadWeight is returned when a weight is negative, NaN, or infinite.
	ErrBadWeight = errors.New("alias: weight is negative or not finite")
)

// Table supports O(1) index draws proportional to the weights it was built
// from.
type Table struct {
	prob  []float64
	alias []uint32
}

// New builds a table over the given weights. Weights need not be normalized;
// they are scaled against their sum before partitioning, so arbitrarily
// skewed vectors do not lose precision.
func New(weights []float64) (*Table, error) {
	n := len(weights)
	if n == 0 {
		return nil, ErrNoWeights
	}

	var sum float64
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, ErrBadWeight
		}
		sum += w
	}
	if sum <= 0 {
		return nil, ErrZeroMass
	}

	// Partition mass into unit-height bins: entries below average go to the
	// small worklist, the rest to the large one. Each small entry is topped
	// up by a large donor, which may itself become small.
	scaled := make([]float64, n)
	small := make([]uint32, 0, n)
	large := make([]uint32, 0, n)

	scale := float64(n) / sum
	for i, w := range weights {
		scaled[i] = w * scale
		if scaled[i] < 1 {
			small = append(small, uint32(i))
		} else {
			large = append(large, uint32(i))
		}
	}

	prob := make([]float64, n)
	aliases := make([]uint32, n)

	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		prob[s] = scaled[s]
		aliases[s] = l

		scaled[l] += scaled[s] - 1
		if scaled[l] < 1 {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}

	// Whatever remains holds mass 1 up to rounding.
	for _, l := range large {
		prob[l] = 1
	}
	for _, s := range small {
		prob[s] = 1
	}

	return &Table{prob: prob, alias: aliases}, nil
}

// Len returns the number of entries the table was built over.
func (t *Table) Len() int {
	return len(t.prob)
}

// Draw returns an index with probability proportional to its weight.
// u1 and u2 must be independent uniforms in [0, 1).
func (t *Table) Draw(u1, u2 float64) uint32 {
	idx := uint32(u1 * float64(len(t.prob)))
	if idx >= uint32(len(t.prob)) {
		// u1 values arbitrarily close to 1 can round up.
		idx = uint32(len(t.prob)) - 1
	}
	if u2 < t.prob[idx] {
		return idx
	}
	return t.alias[idx]
}
