package scego

import (
	"context"

	"github.com/hupe1980/scego/blobstore"
	"github.com/hupe1980/scego/pairsnp"
	"github.com/hupe1980/scego/persistence"
)

// Snapshot converts the result into its persisted form. The snapshot holds
// copies of the coordinate buffers, so it stays valid independently of the
// result.
func (r *Result[T]) Snapshot() *persistence.ResultSnapshot[T] {
	snap := &persistence.ResultSnapshot[T]{
		NodeCount:  r.nodes,
		Animated:   r.animated,
		Iterations: r.iterations,
		Eq:         float64(r.eq),
		Embedding:  r.Embedding(),
	}
	if len(r.frames) > 0 {
		snap.Frames = make([][]T, len(r.frames))
		for k, frame := range r.frames {
			snap.Frames[k] = append([]T(nil), frame...)
		}
		snap.EqFrames = append([]T(nil), r.eqFrames...)
	}
	return snap
}

// ResultFromSnapshot rebuilds a read-only result from its persisted form.
func ResultFromSnapshot[T Float](snap *persistence.ResultSnapshot[T]) *Result[T] {
	res := &Result[T]{
		animated:   snap.Animated,
		nodes:      snap.NodeCount,
		iterations: snap.Iterations,
		eq:         T(snap.Eq),
		embedding:  append([]T(nil), snap.Embedding...),
	}
	if len(snap.Frames) > 0 {
		res.frames = make([][]T, len(snap.Frames))
		for k, frame := range snap.Frames {
			res.frames[k] = append([]T(nil), frame...)
		}
		res.eqFrames = append([]T(nil), snap.EqFrames...)
	}
	return res
}

// SaveResult writes the result to the store under the given name.
func SaveResult[T Float](ctx context.Context, store blobstore.Store, name string, res *Result[T], optFns ...func(o *Options)) error {
	opts := applyOptions(optFns)

	err := persistence.Save(ctx, store, name, res.Snapshot())
	opts.Logger.LogPersist(ctx, "save", name, err)
	return err
}

// LoadResult reads a result previously written with SaveResult.
func LoadResult[T Float](ctx context.Context, store blobstore.Store, name string, optFns ...func(o *Options)) (*Result[T], error) {
	opts := applyOptions(optFns)

	snap, err := persistence.Load[T](ctx, store, name)
	opts.Logger.LogPersist(ctx, "load", name, err)
	if err != nil {
		return nil, err
	}
	return ResultFromSnapshot(snap), nil
}

// SaveDistances writes a sparse distance matrix to the store under the given
// name. Distance computation dominates pipeline runtime on large alignments,
// so callers typically persist the matrix once and re-embed from it.
func SaveDistances(ctx context.Context, store blobstore.Store, name string, sm *pairsnp.SparseMatrix, optFns ...func(o *Options)) error {
	opts := applyOptions(optFns)

	snap := &persistence.SparseSnapshot{N: sm.N, I: sm.I, J: sm.J, Dists: sm.Dists}
	err := persistence.SaveSparse(ctx, store, name, snap)
	opts.Logger.LogPersist(ctx, "save", name, err)
	return err
}

// LoadDistances reads a distance matrix previously written with
// SaveDistances.
func LoadDistances(ctx context.Context, store blobstore.Store, name string, optFns ...func(o *Options)) (*pairsnp.SparseMatrix, error) {
	opts := applyOptions(optFns)

	snap, err := persistence.LoadSparse(ctx, store, name)
	opts.Logger.LogPersist(ctx, "load", name, err)
	if err != nil {
		return nil, err
	}
	return &pairsnp.SparseMatrix{N: snap.N, I: snap.I, J: snap.J, Dists: snap.Dists}, nil
}
