package partition

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/partlab/partree/rand"
)

// Node is one arena entry of a partition tree. Internal nodes carry a cut
// and two child indices; leaves carry the per-subset counts and the density
// estimate. Nodes are append-only during construction and frozen afterward,
// so a finished tree can be shared by reference across concurrent readers.
type Node struct {
	Region Region

	// Internal nodes
	CutDim int
	CutVal float64
	Left   int // arena index; -1 marks a leaf
	Right  int

	// Leaves
	Counts  []int     // per-subset draw counts inside the region
	LogProb float64   // unnormalized combined log-probability
	Prob    float64   // normalized probability, set by Normalize
	Mu      []float64 // per-dim smoothing kernel mean (smoothing only)
	Sigma   []float64 // per-dim smoothing kernel sd (smoothing only)
}

// IsLeaf reports whether the node is a leaf.
func (nd *Node) IsLeaf() bool {
	return nd.Left < 0
}

// Params controls a single tree build. Aggregation entry points derive it
// from the validated Config; it is never mutated during a build.
type Params struct {
	Cut              CutRule
	MinCutLength     []float64 // per-dimension side-length stopping threshold
	MinFractionBlock float64   // pooled-count-fraction stopping threshold
	SmoothRate       float64   // additive pseudo-count for zero-count subsets
	Smoothing        bool      // fit per-leaf Gaussian kernels
}

// Tree is a finalized binary spatial partition: a flat arena of nodes plus
// the derived leaf list. Built once, then normalized, then only read.
type Tree struct {
	Nodes  []Node
	Leaves []int   // arena indices of the leaves
	LogZ   float64 // log normalizing constant, set by Normalize

	cum      []float64 // cumulative leaf probabilities for sampling
	smoothed bool
	p        int
}

// frame is a frontier entry during construction: an arena node plus the
// pooled permutation range it owns.
type frame struct {
	node   int
	lo, hi int
}

// Build constructs a partition tree over the pooled draws: top-down frontier
// expansion applying the cut rule until a stopping rule fires per region.
// The pool's permutation is consumed by the build; use CloneIndex to build
// several trees from one pool.
func Build(pl *Pooled, prm Params, gen *rand.Generator) (*Tree, error) {
	n := pl.N()
	if n < 1 {
		return nil, errors.Errorf("Can not build a tree over an empty pool")
	}
	if len(prm.MinCutLength) != pl.Dim() {
		return nil, errors.Errorf("MinCutLength has %d entries for %d dims", len(prm.MinCutLength), pl.Dim())
	}

	t := &Tree{
		Nodes:    []Node{{Region: pl.Bounds(), Left: -1, Right: -1}},
		smoothed: prm.Smoothing,
		p:        pl.Dim(),
	}

	stack := []frame{{node: 0, lo: 0, hi: n}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		reg := t.Nodes[f.node].Region

		// Stopping rules run before any cut is attempted. A fraction
		// threshold >= 1 stops at the root: the single-leaf tree is the
		// product-of-marginals baseline.
		frac := float64(f.hi-f.lo) / float64(n)
		if allSidesBelow(reg, prm.MinCutLength) || prm.MinFractionBlock >= 1 || frac < prm.MinFractionBlock {
			t.makeLeaf(pl, f, prm)
			continue
		}

		d, x, err := prm.Cut.Cut(pl, f.lo, f.hi, reg, gen)
		if err != nil {
			if errors.Is(err, ErrDegenerate) {
				if f.node == 0 {
					return nil, errors.Wrap(err, "Pooled draws are degenerate at the root")
				}
				t.makeLeaf(pl, f, prm)
				continue
			}
			return nil, errors.Wrap(err, "Cut rule failed")
		}

		mid := pl.partitionRange(f.lo, f.hi, d, x)
		left, right := reg.Split(d, x)

		li := len(t.Nodes)
		t.Nodes = append(t.Nodes, Node{Region: left, Left: -1, Right: -1})
		ri := len(t.Nodes)
		t.Nodes = append(t.Nodes, Node{Region: right, Left: -1, Right: -1})

		nd := &t.Nodes[f.node]
		nd.CutDim = d
		nd.CutVal = x
		nd.Left = li
		nd.Right = ri

		stack = append(stack,
			frame{node: li, lo: f.lo, hi: mid},
			frame{node: ri, lo: mid, hi: f.hi},
		)
	}

	return t, nil
}

// makeLeaf finalizes a frontier region as a leaf: per-subset counts, the
// blockwise density estimate, and optional smoothing kernel parameters.
func (t *Tree) makeLeaf(pl *Pooled, f frame, prm Params) {
	nd := &t.Nodes[f.node]
	nd.Counts = pl.CountRange(f.lo, f.hi)
	nd.LogProb = leafLogProb(nd.Counts, pl.totals, nd.Region.LogVolume(), prm.SmoothRate)

	if prm.Smoothing {
		nd.Mu, nd.Sigma = fitKernel(pl, f.lo, f.hi, nd.Region)
	}

	t.Leaves = append(t.Leaves, f.node)
}

// allSidesBelow reports whether every region side is already below its
// per-dimension minimum cut length.
func allSidesBelow(reg Region, minLen []float64) bool {
	for d := range minLen {
		if reg.Side(d) >= minLen[d] {
			return false
		}
	}
	return true
}

// fitKernel derives a per-dimension Gaussian from the draws inside a leaf:
// mean and sd of the local draws, with the sd falling back to a quarter of
// the region side when the leaf is too small or too flat to estimate one.
func fitKernel(pl *Pooled, lo, hi int, reg Region) ([]float64, []float64) {
	p := pl.Dim()
	mu := make([]float64, p)
	sigma := make([]float64, p)

	count := hi - lo
	col := make([]float64, count)

	for d := 0; d < p; d++ {
		w := reg.Side(d)
		if w < minWidth {
			w = minWidth
		}
		fallback := w / 4

		if count < 2 {
			mu[d] = reg.Lo[d] + w/2
			if count == 1 {
				mu[d] = pl.At(lo, d)
			}
			sigma[d] = fallback
			continue
		}

		for i := lo; i < hi; i++ {
			col[i-lo] = pl.At(i, d)
		}
		m, sd := stat.MeanStdDev(col, nil)
		if sd < minWidth || math.IsNaN(sd) {
			sd = fallback
		}
		mu[d] = m
		sigma[d] = sd
	}

	return mu, sigma
}
