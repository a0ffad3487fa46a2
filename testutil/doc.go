// Package testutil provides helpers for tests and benchmarks.
//
// It is not part of the public API surface and carries no compatibility
// promise. The helpers cover the three inputs scego tests keep
// rebuilding: deterministic random buffers, toy alignments, and toy
// distance graphs.
//
//	rng := testutil.NewRNG(42)
//	y := make([]float64, 2*n)
//	rng.FillUniform(y)
//
//	aln := testutil.RandomAlignment(rng, 16, 200, 0.05)
//	i, j, d := testutil.RingGraph(32)
package testutil
