package partition

import "math"

// minWidth is the floor used for region side lengths when computing volumes,
// so a dimension that is constant in the data cannot zero out every leaf.
const minWidth = 1e-12

// Region is an axis-aligned hyper-rectangle in R^p. A node's children's
// regions partition it exactly: the cut dimension's interval is split at the
// threshold, every other dimension is untouched.
type Region struct {
	Lo []float64 // inclusive lower bounds
	Hi []float64 // upper bounds
}

// NewRegion creates a region with the given bounds (copied).
func NewRegion(lo, hi []float64) Region {
	r := Region{
		Lo: make([]float64, len(lo)),
		Hi: make([]float64, len(hi)),
	}
	copy(r.Lo, lo)
	copy(r.Hi, hi)
	return r
}

// Dim returns the dimensionality of the region.
func (r Region) Dim() int {
	return len(r.Lo)
}

// Side returns the side length along dimension d.
func (r Region) Side(d int) float64 {
	return r.Hi[d] - r.Lo[d]
}

// Contains reports whether x lies inside the region (boundaries included).
func (r Region) Contains(x []float64) bool {
	for d, v := range x {
		if v < r.Lo[d] || v > r.Hi[d] {
			return false
		}
	}
	return true
}

// Split cuts the region at threshold x along dimension d and returns the two
// halves. Together they cover r exactly and overlap only on the cut plane.
func (r Region) Split(d int, x float64) (Region, Region) {
	left := NewRegion(r.Lo, r.Hi)
	right := NewRegion(r.Lo, r.Hi)
	left.Hi[d] = x
	right.Lo[d] = x
	return left, right
}

// LogVolume returns the log of the region's volume with each side floored at
// minWidth.
func (r Region) LogVolume() float64 {
	lv := 0.0
	for d := range r.Lo {
		w := r.Side(d)
		if w < minWidth {
			w = minWidth
		}
		lv += math.Log(w)
	}
	return lv
}
