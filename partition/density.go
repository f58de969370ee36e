package partition

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/partlab/partree/rand"
)

// leafLogProb is the blockwise multiplication estimate for one leaf: each
// subset's local density is (count + smooth) / (subsetTotal * volume), and
// the combined unnormalized log-probability is the sum of the subset-wise
// log-densities scaled back up by the leaf volume. The additive smooth
// pseudo-count keeps a zero-count subset from collapsing the whole product.
func leafLogProb(counts, totals []int, logVol, smooth float64) float64 {
	lp := logVol
	for s, c := range counts {
		lp += math.Log(float64(c)+smooth) - math.Log(float64(totals[s])) - logVol
	}
	return lp
}

// Normalize converts the leaves' unnormalized log-probabilities into a
// proper categorical distribution. All work happens in log-space with the
// usual max-subtraction so near-zero masses cannot underflow. A tree that
// still produces a non-finite mass is reported as an error so the forest
// can discard it.
func (t *Tree) Normalize() error {
	if len(t.Leaves) < 1 {
		return errors.Errorf("Tree has no leaves to normalize")
	}

	maxLP := math.Inf(-1)
	for _, li := range t.Leaves {
		lp := t.Nodes[li].LogProb
		if math.IsNaN(lp) {
			return errors.Errorf("Leaf %d has NaN log-probability", li)
		}
		if lp > maxLP {
			maxLP = lp
		}
	}
	if math.IsInf(maxLP, 0) {
		return errors.Errorf("Tree max log-probability is not finite")
	}

	sum := 0.0
	for _, li := range t.Leaves {
		sum += math.Exp(t.Nodes[li].LogProb - maxLP)
	}
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return errors.Errorf("Tree normalizing constant is unusable (sum=%v)", sum)
	}
	t.LogZ = maxLP + math.Log(sum)

	t.cum = make([]float64, len(t.Leaves))
	acc := 0.0
	for i, li := range t.Leaves {
		p := math.Exp(t.Nodes[li].LogProb - t.LogZ)
		t.Nodes[li].Prob = p
		acc += p
		t.cum[i] = acc
	}
	// Guard the last bucket against rounding so sampling can never run off
	// the end.
	t.cum[len(t.cum)-1] = 1.0

	return nil
}

// FindLeaf walks the tree to the leaf whose region contains x. Returns -1
// when x falls outside the tree's root region.
func (t *Tree) FindLeaf(x []float64) int {
	if !t.Nodes[0].Region.Contains(x) {
		return -1
	}
	i := 0
	for !t.Nodes[i].IsLeaf() {
		if x[t.Nodes[i].CutDim] < t.Nodes[i].CutVal {
			i = t.Nodes[i].Left
		} else {
			i = t.Nodes[i].Right
		}
	}
	return i
}

// SampleLeaf draws a leaf index (into Nodes) from the normalized categorical
// distribution by inverting the cumulative probabilities.
func (t *Tree) SampleLeaf(gen *rand.Generator) int {
	u := gen.Float64()
	k := sort.SearchFloat64s(t.cum, u)
	if k >= len(t.Leaves) {
		k = len(t.Leaves) - 1
	}
	return t.Leaves[k]
}

// SamplePoint draws a point inside the given leaf's region: uniformly, or
// from the leaf's fitted Gaussian truncated to the region when the tree was
// built with smoothing.
func (t *Tree) SamplePoint(leaf int, gen *rand.Generator) []float64 {
	nd := &t.Nodes[leaf]
	x := make([]float64, t.p)

	for d := 0; d < t.p; d++ {
		lo, hi := nd.Region.Lo[d], nd.Region.Hi[d]
		if !t.smoothed {
			x[d] = lo + gen.Float64()*(hi-lo)
			continue
		}

		// Truncated Gaussian by rejection; the kernel is fitted to the
		// leaf's own draws so acceptance is high. Fall back to uniform
		// if the region is far in the kernel's tail.
		ok := false
		for try := 0; try < 32; try++ {
			v := nd.Mu[d] + nd.Sigma[d]*gen.NormFloat64()
			if v >= lo && v <= hi {
				x[d] = v
				ok = true
				break
			}
		}
		if !ok {
			x[d] = lo + gen.Float64()*(hi-lo)
		}
	}

	return x
}

// DensityAt evaluates the tree's normalized density at x: the containing
// leaf's probability spread over its region, either as a flat block or via
// the fitted truncated Gaussian when smoothing is enabled. Zero outside the
// root region.
func (t *Tree) DensityAt(x []float64) float64 {
	li := t.FindLeaf(x)
	if li < 0 {
		return 0
	}
	nd := &t.Nodes[li]

	if !t.smoothed {
		return nd.Prob * math.Exp(-nd.Region.LogVolume())
	}

	dens := nd.Prob
	for d := 0; d < t.p; d++ {
		dens *= truncNormPDF(x[d], nd.Mu[d], nd.Sigma[d], nd.Region.Lo[d], nd.Region.Hi[d])
	}
	return dens
}

// truncNormPDF is the density at x of a Gaussian(mu, sigma) truncated to
// [lo, hi]. Falls back to the uniform density when the truncation mass is
// numerically empty.
func truncNormPDF(x, mu, sigma, lo, hi float64) float64 {
	w := hi - lo
	if w < minWidth {
		w = minWidth
	}

	mass := normCDF((hi-mu)/sigma) - normCDF((lo-mu)/sigma)
	if mass < 1e-12 {
		return 1 / w
	}

	z := (x - mu) / sigma
	pdf := math.Exp(-z*z/2) / (sigma * math.Sqrt(2*math.Pi))
	return pdf / mass
}

// normCDF is the standard normal CDF.
func normCDF(z float64) float64 {
	return 0.5 * math.Erfc(-z/math.Sqrt2)
}
