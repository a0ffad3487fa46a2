package scego

import "github.com/hupe1980/scego/internal/sce"

// Result holds the outcome of an embedding run. It is read-only; accessors
// return copies of the underlying buffers.
type Result[T Float] struct {
	animated   bool
	nodes      int
	iterations uint64
	eq         T
	embedding  []T
	frames     [][]T
	eqFrames   []T
}

func newResult[T Float](out *sce.Output[T], animated bool, nodes int) *Result[T] {
	return &Result[T]{
		animated:   animated,
		nodes:      nodes,
		iterations: out.Iterations,
		eq:         out.Eq,
		embedding:  out.Embedding,
		frames:     out.Frames,
		eqFrames:   out.EqFrames,
	}
}

// Animated reports whether frame capture was requested for the run.
func (r *Result[T]) Animated() bool {
	return r.animated
}

// NumFrames returns the number of captured animation frames, zero when the
// run was not animated.
func (r *Result[T]) NumFrames() int {
	return len(r.frames)
}

// NumNodes returns the number of embedded nodes.
func (r *Result[T]) NumNodes() int {
	return r.nodes
}

// Iterations returns the completed iteration count.
func (r *Result[T]) Iterations() uint64 {
	return r.iterations
}

// Eq returns the final equilibrium value, the run's normalizer estimate. It
// starts at 1 and decreases as the layout settles.
func (r *Result[T]) Eq() T {
	return r.eq
}

// Embedding returns a copy of the final layout as row-major (x, y) pairs.
func (r *Result[T]) Embedding() []T {
	out := make([]T, len(r.embedding))
	copy(out, r.embedding)
	return out
}

// EmbeddingFrame returns a copy of the captured frame with the given index.
func (r *Result[T]) EmbeddingFrame(frame int) ([]T, error) {
	if frame < 0 || frame >= len(r.frames) {
		return nil, &ErrFrameOutOfRange{Frame: frame, Frames: len(r.frames)}
	}
	out := make([]T, len(r.frames[frame]))
	copy(out, r.frames[frame])
	return out, nil
}

// EqFrame returns the equilibrium value recorded when the frame with the
// given index was captured.
func (r *Result[T]) EqFrame(frame int) (T, error) {
	if frame < 0 || frame >= len(r.eqFrames) {
		return 0, &ErrFrameOutOfRange{Frame: frame, Frames: len(r.eqFrames)}
	}
	return r.eqFrames[frame], nil
}
