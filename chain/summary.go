package chain

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Summary captures per-dimension moments of a group of draws. The pairwise
// protocol matches groups on these instead of touching the raw samples.
type Summary struct {
	N    int       // number of draws summarized
	Mean []float64 // per-dimension sample mean
	Var  []float64 // per-dimension sample variance
}

// Summarize computes a Summary of the given draw matrix.
func Summarize(m *mat.Dense) *Summary {
	n, p := m.Dims()

	s := &Summary{
		N:    n,
		Mean: make([]float64, p),
		Var:  make([]float64, p),
	}

	col := make([]float64, n)
	for d := 0; d < p; d++ {
		mat.Col(col, d, m)
		s.Mean[d], s.Var[d] = stat.MeanVariance(col, nil)
	}

	return s
}

// Discrepancy scores how poorly two groups align; the pairwise matcher
// minimizes the total score over a pairing. Pluggable since no single
// criterion is canonical.
type Discrepancy func(a, b *Summary) float64

// MeanDistance is the default Discrepancy: squared Euclidean distance
// between group means, standardized per dimension by the pooled standard
// deviation so no single parameter dominates.
func MeanDistance(a, b *Summary) float64 {
	total := 0.0
	for d := range a.Mean {
		sd := (a.Var[d] + b.Var[d]) / 2
		if sd < 1e-12 {
			sd = 1e-12
		}
		diff := a.Mean[d] - b.Mean[d]
		total += diff * diff / sd
	}
	return total
}
