package forest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/partlab/partree/chain"
	"github.com/partlab/partree/partition"
	"github.com/partlab/partree/rand"
)

func normalChain(t *testing.T, id, n int, mean, sd float64, gen *rand.Generator) *chain.SubChain {
	t.Helper()

	draws := make([][]float64, n)
	for i := range draws {
		draws[i] = []float64{mean + sd*gen.NormFloat64()}
	}
	sc, err := chain.NewSubChain(id, draws)
	if err != nil {
		t.Fatalf("bad test chain: %v", err)
	}
	return sc
}

func testParams(t *testing.T, p int, smoothing bool) Params {
	t.Helper()

	rule, err := partition.NewCutRule(partition.KD, 0.5)
	if err != nil {
		t.Fatalf("cut rule: %v", err)
	}

	minLen := make([]float64, p)
	for d := range minLen {
		minLen[d] = 0.001
	}

	return Params{
		NTree:    8,
		Parallel: true,
		Build: partition.Params{
			Cut:              rule,
			MinCutLength:     minLen,
			MinFractionBlock: 0.01,
			SmoothRate:       0.5,
			Smoothing:        smoothing,
		},
	}
}

func TestBuildForest(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(42)
	assert.NoError(err)
	defer gen.Close()

	pl, err := partition.NewPooled([]*chain.SubChain{
		normalChain(t, 0, 1000, 0, 1, gen),
		normalChain(t, 1, 1000, 0, 1, gen),
	})
	assert.NoError(err)

	f, err := Build(pl, testParams(t, 1, true), gen)
	assert.NoError(err)
	assert.Equal(8, len(f.Trees))
	assert.Empty(f.Warnings)
}

func TestParallelMatchesSequential(t *testing.T) {
	assert := assert.New(t)

	build := func(parallel bool) *Forest {
		gen, err := rand.NewGenerator(42)
		assert.NoError(err)
		defer gen.Close()

		pl, err := partition.NewPooled([]*chain.SubChain{
			normalChain(t, 0, 500, 0, 1, gen),
		})
		assert.NoError(err)

		prm := testParams(t, 1, false)
		prm.Parallel = parallel

		f, err := Build(pl, prm, gen)
		assert.NoError(err)
		return f
	}

	seq := build(false)
	par := build(true)

	// Seeds are fixed before fan-out, so scheduling cannot change results
	assert.Equal(len(seq.Trees), len(par.Trees))
	for i := range seq.Trees {
		assert.Equal(len(seq.Trees[i].Leaves), len(par.Trees[i].Leaves))
		assert.Equal(seq.Trees[i].LogZ, par.Trees[i].LogZ)
		for _, li := range seq.Trees[i].Leaves {
			assert.Equal(seq.Trees[i].Nodes[li].Prob, par.Trees[i].Nodes[li].Prob)
		}
	}
}

func TestSampleShapeAndSupport(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(42)
	assert.NoError(err)
	defer gen.Close()

	pl, err := partition.NewPooled([]*chain.SubChain{
		normalChain(t, 0, 1000, 0, 1, gen),
	})
	assert.NoError(err)

	f, err := Build(pl, testParams(t, 1, true), gen)
	assert.NoError(err)

	out, err := f.Sample(500, gen)
	assert.NoError(err)

	n, p := out.Dims()
	assert.Equal(500, n)
	assert.Equal(1, p)

	root := f.Trees[0].Nodes[0].Region
	for i := 0; i < n; i++ {
		assert.True(root.Contains(out.RawRowView(i)))
	}

	_, err = f.Sample(0, gen)
	assert.Error(err)
}

func TestDensityProductOfGaussians(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(42)
	assert.NoError(err)
	defer gen.Close()

	// Two unit-normal subsets: the combined density is N(0, 1/2), so mass
	// should concentrate near 0 and the density should fall off by +-2
	pl, err := partition.NewPooled([]*chain.SubChain{
		normalChain(t, 0, 2000, 0, 1, gen),
		normalChain(t, 1, 2000, 0, 1, gen),
	})
	assert.NoError(err)

	f, err := Build(pl, testParams(t, 1, true), gen)
	assert.NoError(err)

	center := f.Density([]float64{0})
	tail := f.Density([]float64{2})
	assert.True(center > 0)
	assert.True(center > 4*tail, "center %v should dominate tail %v", center, tail)

	out, err := f.Sample(5000, gen)
	assert.NoError(err)

	col := make([]float64, 5000)
	mat.Col(col, 0, out)
	m, v := stat.MeanVariance(col, nil)
	assert.InDelta(0.0, m, 0.1)
	assert.InDelta(0.5, v, 0.15)
}
