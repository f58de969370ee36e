package aggregate

import (
	"runtime"

	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/mat"

	"github.com/partlab/partree/chain"
	"github.com/partlab/partree/rand"
)

// MergeRecord describes one completed stage of the pairwise protocol:
// which groups (by their index at that stage) were merged, and which group
// was carried over unpaired.
type MergeRecord struct {
	Stage int
	Pairs [][2]int
	Carry int // -1 when every group was paired
}

// Pairwise aggregates the sub-chains recursively two at a time: each stage
// pairs the remaining groups (minimizing summary discrepancy when Match is
// set), merges every pair with the one-stage procedure, and resamples
// ResampleN representative draws standing in for the merged group at the
// next stage. Recursion ends when one group remains; its draws are the
// output. Pair merges within a stage run in parallel; the stage boundary is
// a barrier. Any failed merge is fatal: the next stage cannot proceed
// without its representatives.
func Pairwise(chains []*chain.SubChain, cfg Config) (*mat.Dense, error) {
	out, _, err := PairwiseTrace(chains, cfg)
	return out, err
}

// PairwiseTrace is Pairwise plus the binary merge history, for callers that
// need to audit how the subsets were combined.
func PairwiseTrace(chains []*chain.SubChain, cfg Config) (*mat.Dense, []MergeRecord, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if _, err := chain.CheckSet(chains); err != nil {
		return nil, nil, err
	}

	gen, err := rand.NewGenerator(cfg.Seed)
	if err != nil {
		return nil, nil, err
	}
	defer gen.Close()

	groups := make([]*mat.Dense, len(chains))
	for i, c := range chains {
		groups[i] = c.Samples
	}

	var trace []MergeRecord
	for stage := 1; len(groups) > 1; stage++ {
		pairs, carry := pairGroups(groups, cfg.Match, chain.MeanDistance)
		trace = append(trace, MergeRecord{Stage: stage, Pairs: pairs, Carry: carry})

		// Per-merge seeds drawn in pair order before the fan-out, so the
		// stage result does not depend on merge scheduling.
		seeds := make([]int64, len(pairs))
		for k := range seeds {
			seeds[k] = gen.Int63()
		}

		merged := make([]*mat.Dense, len(pairs))
		errs := make([]error, len(pairs))

		mergeOne := func(k int) {
			a := chain.FromDense(0, groups[pairs[k][0]])
			b := chain.FromDense(1, groups[pairs[k][1]])

			mgen, err := rand.NewGenerator(seeds[k])
			if err != nil {
				errs[k] = err
				return
			}
			defer mgen.Close()

			f, err := buildForest([]*chain.SubChain{a, b}, cfg, mgen)
			if err != nil {
				errs[k] = err
				return
			}
			merged[k], errs[k] = f.Sample(cfg.ResampleN, mgen)
		}

		if cfg.Parallel && len(pairs) > 1 {
			workers := cfg.Workers
			if workers <= 0 {
				workers = runtime.GOMAXPROCS(0)
			}
			p := pool.New().WithMaxGoroutines(workers)
			for k := range pairs {
				k := k
				p.Go(func() { mergeOne(k) })
			}
			p.Wait()
		} else {
			for k := range pairs {
				mergeOne(k)
			}
		}

		for k, err := range errs {
			if err != nil {
				return nil, nil, errors.Wrapf(err, "Stage %d merge of groups %v failed", stage, pairs[k])
			}
		}

		next := merged
		if carry >= 0 {
			// Odd one out rides along to the next stage unmerged
			next = append(next, groups[carry])
		}
		groups = next

		if cfg.StageHook != nil {
			cfg.StageHook(stage, len(groups))
		}
	}

	return groups[0], trace, nil
}
