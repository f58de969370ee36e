package aggregate

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/partlab/partree/chain"
	"github.com/partlab/partree/forest"
	"github.com/partlab/partree/partition"
	"github.com/partlab/partree/rand"
)

// OneStage pools every sub-chain, builds one combined forest over the pool,
// and resamples ResampleN draws from it. This is the base combination
// primitive: standalone here, and the per-pair merge step inside Pairwise.
func OneStage(chains []*chain.SubChain, cfg Config) (*mat.Dense, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	gen, err := rand.NewGenerator(cfg.Seed)
	if err != nil {
		return nil, err
	}
	defer gen.Close()

	f, err := buildForest(chains, cfg, gen)
	if err != nil {
		return nil, err
	}

	return f.Sample(cfg.ResampleN, gen)
}

// OneStageForest builds and returns the combined forest without resampling,
// for callers that want density evaluation (forest.Density) or custom draw
// counts.
func OneStageForest(chains []*chain.SubChain, cfg Config) (*forest.Forest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	gen, err := rand.NewGenerator(cfg.Seed)
	if err != nil {
		return nil, err
	}
	defer gen.Close()

	return buildForest(chains, cfg, gen)
}

// buildForest is the shared core: validate the sub-chain set, pool it, and
// grow a normalized forest. cfg must already be validated.
func buildForest(chains []*chain.SubChain, cfg Config, gen *rand.Generator) (*forest.Forest, error) {
	pl, err := partition.NewPooled(chains)
	if err != nil {
		return nil, err
	}

	minLen, err := cfg.minLengths(pl.Dim())
	if err != nil {
		return nil, err
	}

	rule, err := partition.NewCutRule(cfg.CutType, cfg.SmoothRate)
	if err != nil {
		return nil, err
	}

	f, err := forest.Build(pl, forest.Params{
		NTree:    cfg.NTree,
		Parallel: cfg.Parallel,
		Workers:  cfg.Workers,
		Build: partition.Params{
			Cut:              rule,
			MinCutLength:     minLen,
			MinFractionBlock: cfg.MinFractionBlock,
			SmoothRate:       cfg.SmoothRate,
			Smoothing:        cfg.LocalGaussianSmoothing,
		},
	}, gen)
	if err != nil {
		return nil, errors.Wrap(err, "Forest build failed")
	}

	return f, nil
}
