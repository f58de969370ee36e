package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/partlab/partree/chain"
	"github.com/partlab/partree/rand"
)

func groupAt(mean float64, n int) *mat.Dense {
	m := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		// Small deterministic spread so variances are non-degenerate
		m.Set(i, 0, mean+float64(i%10)*0.01)
	}
	return m
}

func TestPairGroupsSequential(t *testing.T) {
	assert := assert.New(t)

	groups := []*mat.Dense{groupAt(0, 20), groupAt(10, 20), groupAt(0, 20), groupAt(10, 20)}

	pairs, carry := pairGroups(groups, false, chain.MeanDistance)
	assert.Equal([][2]int{{0, 1}, {2, 3}}, pairs)
	assert.Equal(-1, carry)

	pairs, carry = pairGroups(groups[:3], false, chain.MeanDistance)
	assert.Equal([][2]int{{0, 1}}, pairs)
	assert.Equal(2, carry)
}

func TestPairGroupsMatched(t *testing.T) {
	assert := assert.New(t)

	// Two clusters of group means: matching should pair within clusters
	groups := []*mat.Dense{groupAt(0, 20), groupAt(10, 20), groupAt(0.1, 20), groupAt(10.1, 20)}

	pairs, carry := pairGroups(groups, true, chain.MeanDistance)
	assert.Equal(-1, carry)
	assert.Equal(2, len(pairs))

	for _, pr := range pairs {
		near := map[int]bool{0: true, 2: true}
		assert.Equal(near[pr[0]], near[pr[1]], "pair %v crosses the clusters", pr)
	}
}

func TestPairGroupsMatchedOdd(t *testing.T) {
	assert := assert.New(t)

	// The outlier group should be the carry-over
	groups := []*mat.Dense{groupAt(0, 20), groupAt(100, 20), groupAt(0.1, 20)}

	pairs, carry := pairGroups(groups, true, chain.MeanDistance)
	assert.Equal(1, len(pairs))
	assert.Equal(1, carry)
}

func TestGreedyPairingLarge(t *testing.T) {
	assert := assert.New(t)

	// Above the exhaustive limit: greedy path, all groups still paired
	groups := make([]*mat.Dense, 12)
	for i := range groups {
		groups[i] = groupAt(float64(i), 20)
	}

	pairs, carry := pairGroups(groups, true, chain.MeanDistance)
	assert.Equal(6, len(pairs))
	assert.Equal(-1, carry)

	seen := map[int]bool{}
	for _, pr := range pairs {
		assert.False(seen[pr[0]] || seen[pr[1]])
		seen[pr[0]] = true
		seen[pr[1]] = true
	}
}

func TestPairwiseTwoSubsets(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(42)
	assert.NoError(err)
	defer gen.Close()

	chains := []*chain.SubChain{
		normalChain(t, 0, 2000, 0, 1, gen),
		normalChain(t, 1, 2000, 0, 1, gen),
	}

	out, err := Pairwise(chains, fastConfig())
	assert.NoError(err)

	m, v := colMoments(out, 0)
	assert.InDelta(0.0, m, 0.1)
	assert.InDelta(0.5, v, 0.15)
}

func TestPairwiseStagesAndHook(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(42)
	assert.NoError(err)
	defer gen.Close()

	// Five subsets: 5 -> 3 -> 2 -> 1, with an odd carry at two stages
	chains := make([]*chain.SubChain, 5)
	for i := range chains {
		chains[i] = normalChain(t, i, 800, 0, 1, gen)
	}

	cfg := fastConfig()
	cfg.ResampleN = 2000

	var stages []int
	cfg.StageHook = func(stage, groups int) {
		stages = append(stages, groups)
	}

	out, trace, err := PairwiseTrace(chains, cfg)
	assert.NoError(err)
	assert.Equal([]int{3, 2, 1}, stages)

	// 5 -> 3 -> 2 -> 1: two paired stages carry an odd group over
	assert.Equal(3, len(trace))
	assert.Equal(2, len(trace[0].Pairs))
	assert.True(trace[0].Carry >= 0)
	assert.Equal(1, len(trace[1].Pairs))
	assert.True(trace[1].Carry >= 0)
	assert.Equal(1, len(trace[2].Pairs))
	assert.Equal(-1, trace[2].Carry)

	n, _ := out.Dims()
	assert.Equal(2000, n)
}

func TestPairwiseMatchIndifferentOnIdenticalSubsets(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(42)
	assert.NoError(err)
	defer gen.Close()

	// Four copies of the same draws: matching cannot matter
	draws := make([][]float64, 1000)
	for i := range draws {
		draws[i] = []float64{gen.NormFloat64()}
	}
	chains := make([]*chain.SubChain, 4)
	for i := range chains {
		sc, err := chain.NewSubChain(i, draws)
		assert.NoError(err)
		chains[i] = sc
	}

	run := func(match bool) (float64, float64) {
		cfg := fastConfig()
		cfg.ResampleN = 4000
		cfg.Match = match
		out, err := Pairwise(chains, cfg)
		assert.NoError(err)
		return colMoments(out, 0)
	}

	m1, v1 := run(true)
	m2, v2 := run(false)

	assert.InDelta(m1, m2, 0.1)
	assert.InDelta(v1, v2, 0.1)
}
