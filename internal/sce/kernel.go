package sce

// Float is the precision set supported by the embedding kernels.
type Float interface {
	~float32 | ~float64
}

// attractiveStep pulls the embedded positions of nodes i and j together and
// returns the Cauchy kernel value q = 1/(1+|Δ|²) of their current distance.
// The writes are direct, unsynchronized updates to the shared buffer.
func attractiveStep[T Float](y []T, i, j int, eta, attrCoef T) T {
	a, b := 2*i, 2*j
	dy0 := y[a] - y[b]
	dy1 := y[a+1] - y[b+1]
	q := 1 / (1 + dy0*dy0 + dy1*dy1)
	g := -attrCoef * q
	g0 := eta * g * dy0
	g1 := eta * g * dy1
	y[a] += g0
	y[a+1] += g1
	y[b] -= g0
	y[b+1] -= g1
	return q
}

// repulsiveStep pushes the embedded positions of nodes k and l apart and
// returns the kernel value q of their current distance. The repulsive
// gradient is quadratic in q, so near pairs are pushed much harder than far
// ones.
func repulsiveStep[T Float](y []T, k, l int, eta, repuCoef T) T {
	a, b := 2*k, 2*l
	dy0 := y[a] - y[b]
	dy1 := y[a+1] - y[b+1]
	q := 1 / (1 + dy0*dy0 + dy1*dy1)
	g := repuCoef * q * q
	g0 := eta * g * dy0
	g1 := eta * g * dy1
	y[a] += g0
	y[a+1] += g1
	y[b] -= g0
	y[b+1] -= g1
	return q
}
