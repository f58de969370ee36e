// Package aggregate combines independently sampled MCMC sub-chains into one
// sample collection approximating the full-data posterior. It exposes the
// two aggregation protocols: OneStage (all subsets in a single forest pass)
// and Pairwise (recursive pairwise merging with resampling between stages).
package aggregate

import (
	"github.com/pkg/errors"

	"github.com/partlab/partree/partition"
)

// Config holds every option the aggregation protocols consume. Build one
// with Default, adjust, and pass by value: it is validated once at the entry
// point and never mutated mid-run.
type Config struct {
	NTree     int  // trees per forest
	ResampleN int  // samples drawn from each combined forest
	Parallel  bool // parallel tree builds and pair merges
	Workers   int  // goroutine bound; <= 0 means GOMAXPROCS

	CutType          partition.CutKind
	MinCutLength     []float64 // scalar (len 1, broadcast) or length-p
	MinFractionBlock float64   // in (0, 1]; >= 1 disables splitting

	LocalGaussianSmoothing bool    // continuous in-leaf sampling and density
	SmoothRate             float64 // additive pseudo-count for empty blocks

	Match bool  // pairwise only: discrepancy-minimizing pairing
	Seed  int64 // master PRNG seed

	// StageHook, when set, is called by Pairwise after each stage barrier
	// with the completed stage number and the group count remaining.
	StageHook func(stage, groups int)
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		NTree:                  16,
		ResampleN:              10000,
		Parallel:               true,
		CutType:                partition.KD,
		MinCutLength:           []float64{0.001},
		MinFractionBlock:       0.01,
		LocalGaussianSmoothing: true,
		SmoothRate:             0.5,
		Match:                  true,
		Seed:                   1,
	}
}

// Validate reports the first configuration error. Called by the entry
// points before any computation starts.
func (c Config) Validate() error {
	if c.NTree < 1 {
		return errors.Errorf("ntree must be >= 1, got %d", c.NTree)
	}
	if c.ResampleN < 1 {
		return errors.Errorf("resample_N must be >= 1, got %d", c.ResampleN)
	}
	if _, err := partition.NewCutRule(c.CutType, c.SmoothRate); err != nil {
		return err
	}
	if len(c.MinCutLength) < 1 {
		return errors.Errorf("min_cut_length must have at least one entry")
	}
	for d, v := range c.MinCutLength {
		if v < 0 {
			return errors.Errorf("min_cut_length[%d] is negative (%v)", d, v)
		}
	}
	if c.MinFractionBlock <= 0 || c.MinFractionBlock > 1 {
		return errors.Errorf("min_fraction_block must be in (0, 1], got %v", c.MinFractionBlock)
	}
	if c.SmoothRate <= 0 {
		return errors.Errorf("smooth_rate must be positive, got %v", c.SmoothRate)
	}
	return nil
}

// minLengths expands the configured min cut length to the parameter
// dimension p: a single entry broadcasts, a length-p vector is used as-is.
func (c Config) minLengths(p int) ([]float64, error) {
	if len(c.MinCutLength) == p {
		out := make([]float64, p)
		copy(out, c.MinCutLength)
		return out, nil
	}
	if len(c.MinCutLength) == 1 {
		out := make([]float64, p)
		for d := range out {
			out[d] = c.MinCutLength[0]
		}
		return out, nil
	}
	return nil, errors.Errorf("min_cut_length has %d entries for %d dims", len(c.MinCutLength), p)
}
