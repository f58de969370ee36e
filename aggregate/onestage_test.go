package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/partlab/partree/chain"
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

func colMoments(m *mat.Dense, d int) (float64, float64) {
	n, _ := m.Dims()
	col := make([]float64, n)
	mat.Col(col, d, m)
	return stat.MeanVariance(col, nil)
}

func fastConfig() Config {
	cfg := Default()
	cfg.NTree = 8
	cfg.ResampleN = 5000
	return cfg
}

func TestOneStageValidatesFirst(t *testing.T) {
	assert := assert.New(t)

	cfg := Default()
	cfg.NTree = 0
	_, err := OneStage(nil, cfg)
	assert.Error(err)
}

func TestOneStageDimensionMismatch(t *testing.T) {
	assert := assert.New(t)

	a, err := chain.NewSubChain(0, [][]float64{{1, 2}, {3, 4}})
	assert.NoError(err)
	b, err := chain.NewSubChain(1, [][]float64{{1}, {2}})
	assert.NoError(err)

	_, err = OneStage([]*chain.SubChain{a, b}, fastConfig())
	assert.Error(err)
}

func TestOneStageSingleSubsetRoundTrip(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(42)
	assert.NoError(err)
	defer gen.Close()

	// M=1: aggregation must reproduce the subset's own distribution
	sc := normalChain(t, 0, 4000, 5, 2, gen)

	out, err := OneStage([]*chain.SubChain{sc}, fastConfig())
	assert.NoError(err)

	n, p := out.Dims()
	assert.Equal(5000, n)
	assert.Equal(1, p)

	m, v := colMoments(out, 0)
	assert.InDelta(5.0, m, 0.25)
	assert.InDelta(4.0, v, 1.0)
}

func TestOneStageTwoGaussianSubsets(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(42)
	assert.NoError(err)
	defer gen.Close()

	// Two N(0,1) subsets multiply to N(0, 1/2)
	chains := []*chain.SubChain{
		normalChain(t, 0, 2000, 0, 1, gen),
		normalChain(t, 1, 2000, 0, 1, gen),
	}

	out, err := OneStage(chains, fastConfig())
	assert.NoError(err)

	m, v := colMoments(out, 0)
	assert.InDelta(0.0, m, 0.1)
	assert.InDelta(0.5, v, 0.15)
}

func TestOneStageForestDensity(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(42)
	assert.NoError(err)
	defer gen.Close()

	chains := []*chain.SubChain{
		normalChain(t, 0, 2000, 0, 1, gen),
		normalChain(t, 1, 2000, 0, 1, gen),
	}

	f, err := OneStageForest(chains, fastConfig())
	assert.NoError(err)
	assert.True(f.Density([]float64{0}) > f.Density([]float64{2}))
}
