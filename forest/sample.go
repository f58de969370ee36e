package forest

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/partlab/partree/rand"
)

// Sample draws n points from the forest's combined density: a tree picked
// uniformly at random, a leaf from that tree's normalized categorical
// distribution, and a point within the leaf's region. Read-only against the
// forest.
func (f *Forest) Sample(n int, gen *rand.Generator) (*mat.Dense, error) {
	if n < 1 {
		return nil, errors.Errorf("Can not draw %d samples", n)
	}

	p := f.Trees[0].Nodes[0].Region.Dim()
	out := mat.NewDense(n, p, nil)

	for i := 0; i < n; i++ {
		tr := f.Trees[gen.IntN(len(f.Trees))]
		leaf := tr.SampleLeaf(gen)
		out.SetRow(i, tr.SamplePoint(leaf, gen))
	}

	return out, nil
}

// Density evaluates the forest's combined density at x: the average of each
// tree's density there. Zero when x lies outside every tree's root region.
// Safe for concurrent callers.
func (f *Forest) Density(x []float64) float64 {
	total := 0.0
	for _, tr := range f.Trees {
		total += tr.DensityAt(x)
	}
	return total / float64(len(f.Trees))
}
