package partition

import (
	"github.com/pkg/errors"

	"github.com/partlab/partree/rand"
)

// CutKind names one of the closed set of cut strategies.
type CutKind string

// The supported cut strategies. KD is the default: it guarantees an even
// split of the pooled points and scales to large draw counts.
const (
	KD           CutKind = "kd"
	Midpoint     CutKind = "midpoint"
	Mean         CutKind = "mean"
	MLExact      CutKind = "ml"
	MLStochastic CutKind = "ml-stochastic"
)

// ErrDegenerate signals that a region's pooled draws are empty or constant
// along every dimension, so no cut can separate them. Tree construction
// recovers locally by making the region a leaf; it is fatal only at the root.
var ErrDegenerate = errors.New("degenerate region: no valid cut")

// A CutRule chooses a split of the draws in permuted range [lo, hi) of the
// pool: a dimension and a threshold along it. Both children of the induced
// split must be non-empty for sample-based rules. Rules are stateless;
// randomness comes only from the supplied Generator.
type CutRule interface {
	Cut(pl *Pooled, lo, hi int, reg Region, gen *rand.Generator) (dim int, x float64, err error)
}

// NewCutRule returns the CutRule for the given kind. smooth is the additive
// pseudo-count the ML rules share with the leaf density estimator.
func NewCutRule(kind CutKind, smooth float64) (CutRule, error) {
	switch kind {
	case KD:
		return kdCut{}, nil
	case Midpoint:
		return midpointCut{}, nil
	case Mean:
		return meanCut{}, nil
	case MLExact:
		return mlCut{smooth: smooth}, nil
	case MLStochastic:
		return mlStochasticCut{smooth: smooth, window: 32, maxIter: 200}, nil
	default:
		return nil, errors.Errorf("Unknown cut type %q", kind)
	}
}

// kdCut splits at the median along a randomly chosen non-constant dimension.
type kdCut struct{}

func (kdCut) Cut(pl *Pooled, lo, hi int, reg Region, gen *rand.Generator) (int, float64, error) {
	dims := pl.viableDims(lo, hi)
	if len(dims) == 0 {
		return 0, 0, ErrDegenerate
	}
	d := dims[gen.IntN(len(dims))]

	pl.sortRange(lo, hi, d)
	mid := lo + (hi-lo)/2
	a := pl.At(mid-1, d)
	b := pl.At(mid, d)
	if b > a {
		return d, (a + b) / 2, nil
	}

	// Ties across the median. Cut between the tied value and the next
	// distinct one so both children stay non-empty (the dim is viable, so
	// a larger value exists... unless the ties extend to the max, in which
	// case cut below them).
	for i := mid + 1; i < hi; i++ {
		if v := pl.At(i, d); v > b {
			return d, (b + v) / 2, nil
		}
	}
	for i := mid - 1; i >= lo; i-- {
		if v := pl.At(i, d); v < b {
			return d, (v + b) / 2, nil
		}
	}
	return 0, 0, ErrDegenerate
}

// midpointCut splits the region in half along its longest side, ignoring
// the draw distribution. Used for uniform spatial refinement.
type midpointCut struct{}

func (midpointCut) Cut(pl *Pooled, lo, hi int, reg Region, gen *rand.Generator) (int, float64, error) {
	if hi <= lo {
		return 0, 0, ErrDegenerate
	}

	d, side := 0, 0.0
	for j := 0; j < reg.Dim(); j++ {
		if w := reg.Side(j); w > side {
			d, side = j, w
		}
	}
	if side <= minWidth {
		return 0, 0, ErrDegenerate
	}

	return d, reg.Lo[d] + side/2, nil
}

// meanCut splits at the mean of the draws along a randomly chosen
// non-constant dimension.
type meanCut struct{}

func (meanCut) Cut(pl *Pooled, lo, hi int, reg Region, gen *rand.Generator) (int, float64, error) {
	dims := pl.viableDims(lo, hi)
	if len(dims) == 0 {
		return 0, 0, ErrDegenerate
	}
	d := dims[gen.IntN(len(dims))]

	sum := 0.0
	for i := lo; i < hi; i++ {
		sum += pl.At(i, d)
	}
	// Non-constant values put the mean strictly between min and max, so
	// both children are non-empty.
	return d, sum / float64(hi-lo), nil
}
