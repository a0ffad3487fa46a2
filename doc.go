// Package scego computes low-dimensional embeddings of large weighted graphs
// of pairwise distances between biological sequences.
//
// Scego implements stochastic cluster embedding (SCE), a weighted t-SNE-like
// layout algorithm driven by negative sampling, for visual exploration of
// population structure. A sparse distance graph goes in, 2D coordinates per
// node come out.
//
// # Quick Start
//
// From a multiple-sequence alignment already in memory:
//
//	ctx := context.Background()
//
//	sm, _ := pairsnp.Distances(ctx, aln, func(o *pairsnp.Options) {
//	    o.KNN = 25
//	    o.Threads = 4
//	})
//
//	res, _ := scego.Embed[float64](ctx, sm.I, sm.J, sm.Dists, func(o *scego.Options) {
//	    o.Perplexity = 15
//	    o.MaxIter = 100000
//	    o.Workers = 128
//	    o.Threads = 4
//	})
//
//	xy := res.Embedding() // len == 2*N, row-major (x0, y0, x1, y1, ...)
//
// # Precision
//
// The optimizer is generic over float32 and float64. Instantiate
// Embed[float32] for speed or Embed[float64] for accuracy; both run the same
// algorithm.
//
// # Device Execution
//
// EmbedOnDevice runs the identical algorithm on an in-process accelerator
// model: the run is partitioned into blocks of BlockSize threads, each with
// its own deterministic random stream. Device selection, allocation, and
// launch failures surface as distinct errors from the device package, never
// as a silent CPU fallback.
//
// # Animation
//
// With o.Animated set, the optimizer captures o.Frames snapshots of the
// embedding over the run. Frames are point-in-time copies of a buffer that
// concurrent workers keep updating, which is deliberate: the algorithm
// tolerates racy reads and the snapshots are for visual replay, not
// numerics.
//
// # Persistence
//
// Results can be written to and read from any blobstore (local directory,
// in-memory, S3, MinIO) in a compressed, self-describing binary format:
//
//	store := blobstore.NewLocalStore("./runs")
//	_ = scego.SaveResult(ctx, store, "run-42", res)
//
// # Determinism
//
// With Workers=1 and Threads=1 a fixed seed reproduces embeddings
// bit-for-bit. With more workers, updates to the shared coordinate buffer are
// intentionally unsynchronized (Hogwild-style), so only aggregate behavior is
// reproducible.
package scego
