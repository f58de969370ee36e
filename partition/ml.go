package partition

import (
	"math"

	"github.com/partlab/partree/buffer"
	"github.com/partlab/partree/rand"
)

// splitScore is the maximum-likelihood cut objective for splitting range
// [lo, hi) at (dim, x): the multiplied blockwise histogram log-likelihood of
// the two induced blocks, with terms constant across candidates dropped.
// Higher is better. countsL holds per-subset counts of draws below x.
//
// Derivation: each block contributes sum_s c_s*(log(c_s+smooth) - log N_s -
// log vol). The log N_s terms and the volume factors shared by every
// candidate cancel, leaving only the threshold-dependent widths.
func splitScore(reg Region, dim int, x float64, countsL, countsR []int, smooth float64) float64 {
	nL, nR := 0, 0
	score := 0.0
	for s := range countsL {
		cL, cR := countsL[s], countsR[s]
		nL += cL
		nR += cR
		score += float64(cL)*math.Log(float64(cL)+smooth) + float64(cR)*math.Log(float64(cR)+smooth)
	}

	wL := x - reg.Lo[dim]
	wR := reg.Hi[dim] - x
	if wL < minWidth {
		wL = minWidth
	}
	if wR < minWidth {
		wR = minWidth
	}
	score -= float64(nL)*math.Log(wL) + float64(nR)*math.Log(wR)

	return score
}

// mlCut exhaustively scans every distinct order-statistic boundary along
// every non-constant dimension and picks the split maximizing splitScore.
// Statistically the best cut under the block-multiplication model, but
// O(n log n * p) per node - impractical for large pools.
type mlCut struct {
	smooth float64
}

func (c mlCut) Cut(pl *Pooled, lo, hi int, reg Region, gen *rand.Generator) (int, float64, error) {
	dims := pl.viableDims(lo, hi)
	if len(dims) == 0 {
		return 0, 0, ErrDegenerate
	}

	totals := pl.CountRange(lo, hi)
	bestScore := math.Inf(-1)
	bestDim, bestX := -1, 0.0

	countsL := make([]int, pl.nsub)
	countsR := make([]int, pl.nsub)

	for _, d := range dims {
		pl.sortRange(lo, hi, d)

		for s := range countsL {
			countsL[s] = 0
			countsR[s] = totals[s]
		}

		for i := lo; i < hi-1; i++ {
			s := pl.SubsetOf(i)
			countsL[s]++
			countsR[s]--

			v, next := pl.At(i, d), pl.At(i+1, d)
			if next <= v {
				continue // not a distinct-value boundary
			}

			x := (v + next) / 2
			if score := splitScore(reg, d, x, countsL, countsR, c.smooth); score > bestScore {
				bestScore, bestDim, bestX = score, d, x
			}
		}
	}

	if bestDim < 0 {
		return 0, 0, ErrDegenerate
	}
	return bestDim, bestX, nil
}

// mlStochasticCut approximates the exact ML objective by scoring randomly
// proposed (dimension, threshold) candidates, keeping the best seen. The
// search stops early when the best-so-far trajectory stops improving: the
// older half of a circular window of scores agrees with the newer half.
type mlStochasticCut struct {
	smooth  float64
	window  int // convergence window size
	maxIter int
}

func (c mlStochasticCut) Cut(pl *Pooled, lo, hi int, reg Region, gen *rand.Generator) (int, float64, error) {
	dims := pl.viableDims(lo, hi)
	if len(dims) == 0 {
		return 0, 0, ErrDegenerate
	}

	countsL := make([]int, pl.nsub)
	countsR := make([]int, pl.nsub)

	bestScore := math.Inf(-1)
	bestDim, bestX := -1, 0.0

	win := buffer.NewCircularFloat(c.window)

	for iter := 0; iter < c.maxIter; iter++ {
		d := dims[gen.IntN(len(dims))]
		mn, mx := pl.minMaxRange(lo, hi, d)
		x := mn + gen.Float64()*(mx-mn)

		for s := range countsL {
			countsL[s] = 0
			countsR[s] = 0
		}
		for i := lo; i < hi; i++ {
			if pl.At(i, d) < x {
				countsL[pl.SubsetOf(i)]++
			} else {
				countsR[pl.SubsetOf(i)]++
			}
		}
		if sum(countsL) == 0 || sum(countsR) == 0 {
			continue // both blocks must be occupied
		}

		if score := splitScore(reg, d, x, countsL, countsR, c.smooth); score > bestScore {
			bestScore, bestDim, bestX = score, d, x
		}

		win.Add(bestScore)
		if win.HalvesAgree(1e-6) {
			break
		}
	}

	if bestDim < 0 {
		return 0, 0, ErrDegenerate
	}
	return bestDim, bestX, nil
}

func sum(xs []int) int {
	t := 0
	for _, x := range xs {
		t += x
	}
	return t
}
