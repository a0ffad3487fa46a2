// Package pairsnp computes pairwise SNP distances for a multiple-sequence
// alignment and reduces them to a sparse neighbor graph.
//
// Each sequence is encoded as one roaring bitmap per nucleotide over the
// alignment columns where that base is called (case-insensitive). Gaps,
// ambiguity codes, and anything else count as unknown. The distance between
// two sequences is the number of columns where both calls are known and
// disagree:
//
//	d(a, b) = |known_a ∩ known_b| − Σ_base |base_a ∩ base_b|
//
// Two mutually exclusive selection modes shrink the full pairwise matrix to
// a sparse edge list: KNN keeps each row's k nearest neighbors, Dist keeps
// every neighbor within a distance threshold. Rows are processed in parallel
// but each pair's distance depends only on the two sequences, so the output
// is identical for any thread count.
package pairsnp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrTooFewSequences is returned when the alignment has fewer than two
	// sequences.
	ErrTooFewSequences = errors.New("pairsnp: alignment must have at least two sequences")

	// ErrEmptyAlignment is returned when the alignment has zero columns.
	ErrEmptyAlignment = errors.New("pairsnp: alignment has no columns")

	// ErrRaggedAlignment is returned when sequences differ in aligned length.
	ErrRaggedAlignment = errors.New("pairsnp: sequences differ in aligned length")

	// ErrNamesMismatch is returned when names are supplied but do not match
	// the sequence count.
	ErrNamesMismatch = errors.New("pairsnp: names do not match sequence count")

	// ErrSelectionMode is returned unless exactly one of KNN or Dist is set.
	ErrSelectionMode = errors.New("pairsnp: exactly one of KNN or Dist must be set")

	// ErrInvalidKNN is returned when KNN is set but not positive.
	ErrInvalidKNN = errors.New("pairsnp: knn must be positive")
)

// Alignment is a multiple-sequence alignment held in memory. All rows must
// have the same aligned length. Names are optional; when present they must
// match the sequence count.
type Alignment struct {
	Names []string
	Seqs  [][]byte
}

// Options represents the options for configuring distance computation.
//
// KNN and Dist follow the unset-below-zero convention: leave one at its
// default (-1) and set the other.
type Options struct {
	// Threads is the number of row-block workers.
	Threads int

	// KNN keeps, per sequence, its KNN nearest neighbors (ties broken by
	// sequence index). Negative means unset.
	KNN int

	// Dist keeps, per sequence, every neighbor with distance <= Dist.
	// Negative means unset.
	Dist float64

	// Logger configures structured logging. Nil disables logging.
	Logger *slog.Logger
}

// DefaultOptions are the options applied before any option functions run.
var DefaultOptions = Options{
	Threads: 1,
	KNN:     -1,
	Dist:    -1,
}

// SparseMatrix holds directed row→neighbor distance records: sequence I[k]
// retained neighbor J[k] at distance Dists[k]. Records are grouped by row in
// ascending order. N is the sequence count.
type SparseMatrix struct {
	I     []uint32
	J     []uint32
	Dists []float64
	N     int
}

// Len returns the number of retained records.
func (s *SparseMatrix) Len() int {
	return len(s.Dists)
}

// profile is the bitmap encoding of one sequence.
type profile struct {
	bases [4]*roaring.Bitmap // A, C, G, T
	known *roaring.Bitmap
}

// Distances computes the sparse SNP distance graph of the alignment.
func Distances(ctx context.Context, aln Alignment, optFns ...func(o *Options)) (*SparseMatrix, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}
	if opts.Threads <= 0 {
		opts.Threads = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	useKNN := opts.KNN >= 0
	useDist := opts.Dist >= 0
	if useKNN == useDist {
		return nil, ErrSelectionMode
	}
	if useKNN && opts.KNN == 0 {
		return nil, ErrInvalidKNN
	}

	n := len(aln.Seqs)
	if n < 2 {
		return nil, ErrTooFewSequences
	}
	if len(aln.Names) > 0 && len(aln.Names) != n {
		return nil, fmt.Errorf("%w: %d names for %d sequences", ErrNamesMismatch, len(aln.Names), n)
	}
	width := len(aln.Seqs[0])
	if width == 0 {
		return nil, ErrEmptyAlignment
	}
	for r := 1; r < n; r++ {
		if len(aln.Seqs[r]) != width {
			return nil, fmt.Errorf("%w: sequence %d has %d columns, expected %d", ErrRaggedAlignment, r, len(aln.Seqs[r]), width)
		}
	}

	profiles := encode(aln.Seqs)

	// Row blocks are computed by independent workers into disjoint slots and
	// merged only after every worker has finished.
	rows := make([][]record, n)

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
			buf := make([]record, 0, n-1)
			for r := lo; r < hi; r++ {
				buf = buf[:0]
				for c := 0; c < n; c++ {
					if c == r {
						continue
					}
					buf = append(buf, record{j: uint32(c), d: distance(profiles[r], profiles[c])})
				}
				rows[r] = selectNeighbors(buf, opts)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, recs := range rows {
		total += len(recs)
	}
	out := &SparseMatrix{
		I:     make([]uint32, 0, total),
		J:     make([]uint32, 0, total),
		Dists: make([]float64, 0, total),
		N:     n,
	}
	for r, recs := range rows {
		for _, rec := range recs {
			out.I = append(out.I, uint32(r))
			out.J = append(out.J, rec.j)
			out.Dists = append(out.Dists, rec.d)
		}
	}

	logger.DebugContext(ctx, "pairwise distances computed",
		"sequences", n,
		"columns", width,
		"records", out.Len(),
		"threads", opts.Threads,
	)

	return out, nil
}

type record struct {
	j uint32
	d float64
}

// encode builds the per-base presence bitmaps for every sequence.
func encode(seqs [][]byte) []profile {
	profiles := make([]profile, len(seqs))
	for r, seq := range seqs {
		p := profile{known: roaring.New()}
		for b := range p.bases {
			p.bases[b] = roaring.New()
		}
		for col, sym := range seq {
			var idx int
			switch sym {
			case 'A', 'a':
				idx = 0
			case 'C', 'c':
				idx = 1
			case 'G', 'g':
				idx = 2
			case 'T', 't':
				idx = 3
			default:
				continue // gap, N, ambiguity code: unknown
			}
			p.bases[idx].Add(uint32(col))
		}
		for _, bm := range p.bases {
			p.known.Or(bm)
		}
		profiles[r] = p
	}
	return profiles
}

// distance counts columns where both calls are known and disagree.
func distance(a, b profile) float64 {
	comparable := a.known.AndCardinality(b.known)
	var matching uint64
	for idx := range a.bases {
		matching += a.bases[idx].AndCardinality(b.bases[idx])
	}
	return float64(comparable - matching)
}

// selectNeighbors applies the configured selection mode to one row.
func selectNeighbors(buf []record, opts Options) []record {
	if opts.Dist >= 0 {
		out := make([]record, 0, len(buf))
		for _, rec := range buf {
			if rec.d <= opts.Dist {
				out = append(out, rec)
			}
		}
		return out
	}

	k := min(opts.KNN, len(buf))
	sorted := make([]record, len(buf))
	copy(sorted, buf)
	sort.Slice(sorted, func(a, b int) bool {
		if sorted[a].d != sorted[b].d {
			return sorted[a].d < sorted[b].d
		}
		return sorted[a].j < sorted[b].j
	})
	return sorted[:k:k]
}
