package aggregate

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/partlab/partree/chain"
)

// exhaustiveLimit is the largest group count for which we search every
// perfect pairing. (2k-1)!! pairings of 2k groups: 105 at 8 groups, cheap.
const exhaustiveLimit = 9

// pairGroups chooses the pairing for one pairwise stage. Returns index
// pairs plus the index of an unpaired carry-over group (-1 when the count
// is even). With match disabled the groups pair in input order.
func pairGroups(groups []*mat.Dense, match bool, d chain.Discrepancy) ([][2]int, int) {
	m := len(groups)

	if !match {
		pairs := make([][2]int, 0, m/2)
		for i := 0; i+1 < m; i += 2 {
			pairs = append(pairs, [2]int{i, i + 1})
		}
		carry := -1
		if m%2 == 1 {
			carry = m - 1
		}
		return pairs, carry
	}

	sums := make([]*chain.Summary, m)
	for i, g := range groups {
		sums[i] = chain.Summarize(g)
	}

	idx := make([]int, m)
	for i := range idx {
		idx[i] = i
	}

	if m <= exhaustiveLimit {
		pairs, carry, _ := bestPairing(idx, sums, d)
		return pairs, carry
	}
	return greedyPairing(idx, sums, d)
}

// bestPairing exhaustively minimizes the total discrepancy over all perfect
// pairings of idx (trying every carry-over choice when the count is odd).
func bestPairing(idx []int, sums []*chain.Summary, d chain.Discrepancy) ([][2]int, int, float64) {
	if len(idx) == 0 {
		return nil, -1, 0
	}

	if len(idx)%2 == 1 {
		bestCost := math.Inf(1)
		var bestPairs [][2]int
		bestCarry := -1
		rest := make([]int, 0, len(idx)-1)
		for skip := range idx {
			rest = rest[:0]
			for j, v := range idx {
				if j != skip {
					rest = append(rest, v)
				}
			}
			pairs, _, cost := bestPairing(rest, sums, d)
			if cost < bestCost {
				bestCost = cost
				bestPairs = pairs
				bestCarry = idx[skip]
			}
		}
		return bestPairs, bestCarry, bestCost
	}

	if len(idx) == 2 {
		return [][2]int{{idx[0], idx[1]}}, -1, d(sums[idx[0]], sums[idx[1]])
	}

	// Fix the first element, try every partner, recurse on the rest
	first := idx[0]
	bestCost := math.Inf(1)
	var bestPairs [][2]int
	rest := make([]int, 0, len(idx)-2)
	for j := 1; j < len(idx); j++ {
		partner := idx[j]
		rest = rest[:0]
		for k := 1; k < len(idx); k++ {
			if k != j {
				rest = append(rest, idx[k])
			}
		}
		sub, _, subCost := bestPairing(rest, sums, d)
		cost := d(sums[first], sums[partner]) + subCost
		if cost < bestCost {
			bestCost = cost
			bestPairs = append([][2]int{{first, partner}}, sub...)
		}
	}
	return bestPairs, -1, bestCost
}

// greedyPairing repeatedly joins the globally closest remaining pair. Not
// optimal, but O(m^3) worst case against the factorial exact search.
func greedyPairing(idx []int, sums []*chain.Summary, d chain.Discrepancy) ([][2]int, int) {
	remaining := make([]int, len(idx))
	copy(remaining, idx)

	pairs := make([][2]int, 0, len(idx)/2)
	for len(remaining) > 1 {
		bi, bj := 0, 1
		best := math.Inf(1)
		for i := 0; i < len(remaining); i++ {
			for j := i + 1; j < len(remaining); j++ {
				if c := d(sums[remaining[i]], sums[remaining[j]]); c < best {
					best, bi, bj = c, i, j
				}
			}
		}
		pairs = append(pairs, [2]int{remaining[bi], remaining[bj]})
		// Remove bj first: it sits after bi
		remaining = append(remaining[:bj], remaining[bj+1:]...)
		remaining = append(remaining[:bi], remaining[bi+1:]...)
	}

	carry := -1
	if len(remaining) == 1 {
		carry = remaining[0]
	}
	return pairs, carry
}
