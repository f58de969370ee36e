package chain

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// SubChain holds the posterior draws one MCMC run produced on one data
// subset: an N x p matrix with one draw per row. partree never generates
// these - any sampler that can emit a real-valued matrix can feed it.
type SubChain struct {
	ID      int        // Index of the subset within the aggregation run
	Samples *mat.Dense // N x p draws, one per row
}

// NewSubChain creates a SubChain from a slice of draws. All draws must be
// non-empty and share the same dimension.
func NewSubChain(id int, draws [][]float64) (*SubChain, error) {
	if len(draws) < 1 {
		return nil, errors.Errorf("Sub-chain %d has no draws", id)
	}

	p := len(draws[0])
	if p < 1 {
		return nil, errors.Errorf("Sub-chain %d has zero-dimension draws", id)
	}

	flat := make([]float64, 0, len(draws)*p)
	for i, row := range draws {
		if len(row) != p {
			return nil, errors.Errorf("Sub-chain %d draw %d has dim %d, want %d", id, i, len(row), p)
		}
		flat = append(flat, row...)
	}

	return &SubChain{
		ID:      id,
		Samples: mat.NewDense(len(draws), p, flat),
	}, nil
}

// FromDense wraps an existing matrix as a SubChain. The matrix is NOT
// copied; the caller must not mutate it during aggregation.
func FromDense(id int, m *mat.Dense) *SubChain {
	return &SubChain{ID: id, Samples: m}
}

// Len returns the number of draws in the sub-chain.
func (s *SubChain) Len() int {
	n, _ := s.Samples.Dims()
	return n
}

// Dim returns the parameter dimension p.
func (s *SubChain) Dim() int {
	_, p := s.Samples.Dims()
	return p
}

// Row returns draw i without copying.
func (s *SubChain) Row(i int) []float64 {
	return s.Samples.RawRowView(i)
}

// CheckSet validates a set of sub-chains for aggregation and returns the
// shared parameter dimension. Sub-chains with differing column counts are a
// fatal dimension mismatch.
func CheckSet(chains []*SubChain) (int, error) {
	if len(chains) < 1 {
		return 0, errors.Errorf("No sub-chains to aggregate")
	}

	p := chains[0].Dim()
	for i, c := range chains {
		if c == nil || c.Samples == nil {
			return 0, errors.Errorf("Sub-chain %d is missing", i)
		}
		if c.Len() < 1 {
			return 0, errors.Errorf("Sub-chain %d is empty", i)
		}
		if c.Dim() != p {
			return 0, errors.Errorf("Dimension mismatch: sub-chain %d has p=%d, sub-chain 0 has p=%d", i, c.Dim(), p)
		}
	}

	return p, nil
}
