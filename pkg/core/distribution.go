package core

import "sort"

// Distribution1D samples indices in proportion to non-negative weights.
// Weights are normalised on construction; if they are all zero the
// distribution falls back to uniform.
type Distribution1D struct {
	pdf []float64
	cdf []float64
}

// NewDistribution1D builds a discrete distribution over the given weights
func NewDistribution1D(weights []float64) *Distribution1D {
	n := len(weights)
	d := &Distribution1D{pdf: make([]float64, n), cdf: make([]float64, n+1)}
	if n == 0 {
		return d
	}

	total := 0.0
	for _, w := range weights {
		total += max(w, 0)
	}
	for i, w := range weights {
		if total > 0 {
			d.pdf[i] = max(w, 0) / total
		} else {
			d.pdf[i] = 1.0 / float64(n)
		}
		d.cdf[i+1] = d.cdf[i] + d.pdf[i]
	}
	d.cdf[n] = 1.0
	return d
}

// Len returns the number of entries
func (d *Distribution1D) Len() int {
	return len(d.pdf)
}

// Sample maps u in [0,1) to an index and returns it with its probability
func (d *Distribution1D) Sample(u float64) (int, float64) {
	n := len(d.pdf)
	if n == 0 {
		return -1, 0
	}
	// First entry whose upper cdf bound exceeds u; skips zero-weight entries
	idx := sort.Search(n, func(i int) bool { return d.cdf[i+1] > u })
	if idx >= n {
		idx = n - 1
	}
	return idx, d.pdf[idx]
}

// Pdf returns the probability of index i
func (d *Distribution1D) Pdf(i int) float64 {
	if i < 0 || i >= len(d.pdf) {
		return 0
	}
	return d.pdf[i]
}
