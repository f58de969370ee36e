// Package forest builds and queries ensembles of partition trees. Each tree
// is grown independently from the same pooled draws with its own randomized
// tie-breaks; averaging the ensemble reduces the variance of the combined
// density estimate versus any single tree.
package forest

import (
	"fmt"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"

	"github.com/partlab/partree/partition"
	"github.com/partlab/partree/rand"
)

// Params controls a forest build.
type Params struct {
	NTree    int  // number of trees in the ensemble
	Parallel bool // build trees concurrently
	Workers  int  // goroutine bound; <= 0 means GOMAXPROCS
	Build    partition.Params
}

// Forest is an ensemble of finalized partition trees. Immutable once built;
// sampling and density queries are safe to run concurrently.
type Forest struct {
	Trees []*partition.Tree

	// Warnings lists trees that were discarded for numerical instability
	// instead of failing the whole build.
	Warnings []string
}

// Build grows and normalizes NTree partition trees over the pooled draws.
// Every tree gets its own index permutation and its own child generator,
// with seeds drawn up front so results are identical whether or not the
// builds run in parallel. A tree whose normalization goes non-finite is
// dropped with a warning; the build fails only if no tree survives.
func Build(pl *partition.Pooled, prm Params, gen *rand.Generator) (*Forest, error) {
	if prm.NTree < 1 {
		return nil, errors.Errorf("Forest needs at least 1 tree, got %d", prm.NTree)
	}

	// Seeds come off the parent generator in index order before any
	// fan-out, so parallel scheduling cannot change the forest.
	seeds := make([]int64, prm.NTree)
	for i := range seeds {
		seeds[i] = gen.Int63()
	}

	trees := make([]*partition.Tree, prm.NTree)
	errs := make([]error, prm.NTree)

	buildOne := func(i int) {
		tgen, err := rand.NewGenerator(seeds[i])
		if err != nil {
			errs[i] = err
			return
		}
		defer tgen.Close()

		tr, err := partition.Build(pl.CloneIndex(), prm.Build, tgen)
		if err != nil {
			errs[i] = err
			return
		}
		if err := tr.Normalize(); err != nil {
			errs[i] = err
			return
		}
		trees[i] = tr
	}

	if prm.Parallel && prm.NTree > 1 {
		workers := prm.Workers
		if workers <= 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		p := pool.New().WithMaxGoroutines(workers)
		for i := 0; i < prm.NTree; i++ {
			i := i
			p.Go(func() { buildOne(i) })
		}
		p.Wait()
	} else {
		for i := 0; i < prm.NTree; i++ {
			buildOne(i)
		}
	}

	f := &Forest{
		Trees: make([]*partition.Tree, 0, prm.NTree),
	}
	for i, tr := range trees {
		if tr != nil {
			f.Trees = append(f.Trees, tr)
			continue
		}
		f.Warnings = append(f.Warnings, fmt.Sprintf("tree %d discarded: %v", i, errs[i]))
	}

	if len(f.Trees) < 1 {
		return nil, errors.Errorf("All %d trees failed; first failure: %v", prm.NTree, errs[0])
	}

	return f, nil
}
