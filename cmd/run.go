package cmd

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/partlab/partree/aggregate"
	"github.com/partlab/partree/chain"
)

// runCmd builds the onestage/pairwise command; the two differ only in which
// protocol they invoke.
func runCmd(sp *startupParams, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cleanup, err := sp.startup()
			if err != nil {
				return err
			}
			defer cleanup()
			return runAggregation(sp, name)
		},
	}
}

// loadChains reads every input CSV into a SubChain.
func loadChains(sp *startupParams) ([]*chain.SubChain, error) {
	if len(sp.inputFiles) < 1 {
		return nil, errors.Errorf("At least one --input sub-chain file is required")
	}

	chains := make([]*chain.SubChain, len(sp.inputFiles))
	for i, fn := range sp.inputFiles {
		m, err := chain.LoadCSV(fn)
		if err != nil {
			return nil, err
		}
		chains[i] = chain.FromDense(i, m)
		n, p := m.Dims()
		sp.trace.Printf("input %s: %d draws, %d dims\n", fn, n, p)
	}

	return chains, nil
}

func runAggregation(sp *startupParams, mode string) error {
	if len(sp.outputFile) < 1 {
		return errors.Errorf("An --output file is required")
	}

	chains, err := loadChains(sp)
	if err != nil {
		return err
	}

	cfg, err := sp.config()
	if err != nil {
		return err
	}

	sp.out.Printf("partree %s: %d sub-chains, ntree=%d, cut=%s, resample=%d\n",
		mode, len(chains), cfg.NTree, cfg.CutType, cfg.ResampleN)

	mon := &monitor{}
	if len(sp.monitorAddr) > 0 {
		if err := mon.Start(sp.monitorAddr); err != nil {
			return err
		}
		defer mon.Stop()

		mon.SubChains.Set(int64(len(chains)))
		mon.TreesPerForest.Set(int64(cfg.NTree))
		mon.ResampleN.Set(int64(cfg.ResampleN))
		total := 0
		for _, c := range chains {
			total += c.Len()
		}
		mon.TotalDraws.Set(int64(total))

		cfg.StageHook = func(stage, groups int) {
			mon.StagesDone.Set(int64(stage))
			mon.GroupsRemaining.Set(int64(groups))
		}
	}

	start := time.Now()

	var out *mat.Dense
	switch mode {
	case "onestage":
		out, err = aggregate.OneStage(chains, cfg)
	case "pairwise":
		out, err = aggregate.Pairwise(chains, cfg)
	default:
		return errors.Errorf("BUG: unknown aggregation mode %s", mode)
	}
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	if mon.info != nil {
		mon.RunTime.Set(elapsed.Seconds())
	}

	n, p := out.Dims()
	sp.out.Printf("aggregated %d samples (%d dims) in %v\n", n, p, elapsed)

	if sp.verbose {
		s := chain.Summarize(out)
		for d := 0; d < p; d++ {
			sp.out.Printf("  dim %d: mean %9.5f  var %9.5f\n", d, s.Mean[d], s.Var[d])
		}
	}

	return chain.SaveCSV(sp.outputFile, out)
}
