package partition

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/partlab/partree/chain"
)

// Pooled holds every subset's draws flattened into one row-major array, each
// row tagged with the subset it came from. Tree construction never moves the
// data itself: nodes own contiguous ranges of the idx permutation, and a cut
// reorders only that permutation. Building several trees from the same pool
// concurrently requires one CloneIndex per tree (data stays shared).
type Pooled struct {
	data   []float64 // row-major n x p draw values (shared, read-only)
	subset []int     // subset tag per row (shared, read-only)
	totals []int     // rows per subset (shared, read-only)
	idx    []int     // permutation over rows; owned by one tree build
	n      int
	p      int
	nsub   int
}

// NewPooled flattens a validated set of sub-chains into pooled storage.
func NewPooled(chains []*chain.SubChain) (*Pooled, error) {
	p, err := chain.CheckSet(chains)
	if err != nil {
		return nil, errors.Wrap(err, "Can not pool sub-chains")
	}

	n := 0
	for _, c := range chains {
		n += c.Len()
	}

	pl := &Pooled{
		data:   make([]float64, 0, n*p),
		subset: make([]int, 0, n),
		totals: make([]int, len(chains)),
		idx:    make([]int, n),
		n:      n,
		p:      p,
		nsub:   len(chains),
	}

	for s, c := range chains {
		pl.totals[s] = c.Len()
		for i := 0; i < c.Len(); i++ {
			pl.data = append(pl.data, c.Row(i)...)
			pl.subset = append(pl.subset, s)
		}
	}

	for i := range pl.idx {
		pl.idx[i] = i
	}

	return pl, nil
}

// N returns the total pooled draw count.
func (pl *Pooled) N() int { return pl.n }

// Dim returns the parameter dimension p.
func (pl *Pooled) Dim() int { return pl.p }

// NumSubsets returns the number of pooled sub-chains.
func (pl *Pooled) NumSubsets() int { return pl.nsub }

// SubsetTotals returns the per-subset draw counts (copied).
func (pl *Pooled) SubsetTotals() []int {
	t := make([]int, pl.nsub)
	copy(t, pl.totals)
	return t
}

// At returns the value of permuted row i along dimension d.
func (pl *Pooled) At(i, d int) float64 {
	return pl.data[pl.idx[i]*pl.p+d]
}

// SubsetOf returns the subset tag of permuted row i.
func (pl *Pooled) SubsetOf(i int) int {
	return pl.subset[pl.idx[i]]
}

// CloneIndex returns a Pooled sharing the read-only draw data but with its
// own fresh permutation, so another tree can be built concurrently.
func (pl *Pooled) CloneIndex() *Pooled {
	cp := &Pooled{
		data:   pl.data,
		subset: pl.subset,
		totals: pl.totals,
		idx:    make([]int, pl.n),
		n:      pl.n,
		p:      pl.p,
		nsub:   pl.nsub,
	}
	for i := range cp.idx {
		cp.idx[i] = i
	}
	return cp
}

// Bounds returns the bounding box of all pooled draws. This is the root
// region of every tree: the blockwise estimate integrates over the observed
// hull, and density is 0 outside it.
func (pl *Pooled) Bounds() Region {
	lo := make([]float64, pl.p)
	hi := make([]float64, pl.p)
	for d := 0; d < pl.p; d++ {
		lo[d] = pl.data[d]
		hi[d] = pl.data[d]
	}
	for i := 1; i < pl.n; i++ {
		for d := 0; d < pl.p; d++ {
			v := pl.data[i*pl.p+d]
			if v < lo[d] {
				lo[d] = v
			}
			if v > hi[d] {
				hi[d] = v
			}
		}
	}
	return Region{Lo: lo, Hi: hi}
}

// CountRange returns per-subset draw counts within permuted rows [lo, hi).
func (pl *Pooled) CountRange(lo, hi int) []int {
	counts := make([]int, pl.nsub)
	for i := lo; i < hi; i++ {
		counts[pl.SubsetOf(i)]++
	}
	return counts
}

// sortRange stable-sorts permuted rows [lo, hi) by their value along dim.
func (pl *Pooled) sortRange(lo, hi, dim int) {
	sub := pl.idx[lo:hi]
	sort.SliceStable(sub, func(a, b int) bool {
		return pl.data[sub[a]*pl.p+dim] < pl.data[sub[b]*pl.p+dim]
	})
}

// partitionRange stably reorders permuted rows [lo, hi) so rows with value
// < x along dim come first, and returns the boundary index.
func (pl *Pooled) partitionRange(lo, hi, dim int, x float64) int {
	left := make([]int, 0, hi-lo)
	right := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		row := pl.idx[i]
		if pl.data[row*pl.p+dim] < x {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	copy(pl.idx[lo:], left)
	copy(pl.idx[lo+len(left):], right)
	return lo + len(left)
}

// viableDims returns the dimensions along which the draws in [lo, hi) are
// not constant. An empty result means the range is degenerate.
func (pl *Pooled) viableDims(lo, hi int) []int {
	dims := make([]int, 0, pl.p)
	if hi <= lo {
		return dims
	}
	for d := 0; d < pl.p; d++ {
		first := pl.At(lo, d)
		for i := lo + 1; i < hi; i++ {
			if pl.At(i, d) != first {
				dims = append(dims, d)
				break
			}
		}
	}
	return dims
}

// minMaxRange returns the min and max value along dim over permuted rows
// [lo, hi).
func (pl *Pooled) minMaxRange(lo, hi, dim int) (float64, float64) {
	mn := pl.At(lo, dim)
	mx := mn
	for i := lo + 1; i < hi; i++ {
		v := pl.At(i, dim)
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	return mn, mx
}
