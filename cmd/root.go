package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/partlab/partree/aggregate"
	"github.com/partlab/partree/partition"
)

// startupParams holds everything the CLI gathers before real work starts:
// flag values plus the loggers commands write through.
type startupParams struct {
	verbose     bool
	inputFiles  []string
	outputFile  string
	traceFile   string
	monitorAddr string

	ntree            int
	resampleN        int
	parallel         bool
	cutType          string
	minCutLength     float64
	minFractionBlock float64
	smoothing        bool
	smoothRate       float64
	match            bool
	randomSeed       int64

	out   *log.Logger // console output
	trace *log.Logger // optional trace file (defaults to discard)
}

// config maps the flag values into a validated aggregation Config.
func (sp *startupParams) config() (aggregate.Config, error) {
	cfg := aggregate.Default()
	cfg.NTree = sp.ntree
	cfg.ResampleN = sp.resampleN
	cfg.Parallel = sp.parallel
	cfg.CutType = partition.CutKind(sp.cutType)
	cfg.MinCutLength = []float64{sp.minCutLength}
	cfg.MinFractionBlock = sp.minFractionBlock
	cfg.LocalGaussianSmoothing = sp.smoothing
	cfg.SmoothRate = sp.smoothRate
	cfg.Match = sp.match
	cfg.Seed = sp.randomSeed
	return cfg, cfg.Validate()
}

// startup opens the loggers. The returned cleanup closes the trace file.
func (sp *startupParams) startup() (func(), error) {
	sp.out = log.New(os.Stdout, "", 0)

	if len(sp.traceFile) < 1 {
		sp.trace = log.New(io.Discard, "", 0)
		return func() {}, nil
	}

	f, err := os.Create(sp.traceFile)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not create trace file %s", sp.traceFile)
	}
	sp.trace = log.New(f, "", 0)
	return func() { f.Close() }, nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	sp := &startupParams{}

	rootCmd := &cobra.Command{
		Use:   "partree",
		Short: "Random-partition-tree aggregation for parallel MCMC",
		Long: `partree combines independently sampled MCMC sub-chains into one sample
collection approximating the full-data posterior. Among other features:

  - One-stage aggregation: one random-partition forest over all subsets
  - Pairwise aggregation: recursive merging with resampling between stages
  - kd, midpoint, mean, and maximum-likelihood cut rules
`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&sp.verbose, "verbose", "v", false, "Verbose logging (default is much more parsimonious)")
	pf.StringArrayVarP(&sp.inputFiles, "input", "i", nil, "Sub-chain CSV file (repeat once per subset)")
	pf.StringVarP(&sp.outputFile, "output", "o", "", "Output CSV file for the aggregated samples")
	pf.StringVarP(&sp.traceFile, "trace", "t", "", "Trace file for extra output")
	pf.StringVar(&sp.monitorAddr, "monitor", "", "Address for the HTTP progress monitor (e.g. :8000)")

	pf.IntVar(&sp.ntree, "ntree", 16, "Number of trees per forest")
	pf.IntVar(&sp.resampleN, "resample", 10000, "Number of aggregated samples to draw")
	pf.BoolVar(&sp.parallel, "parallel", true, "Build trees and merge pairs in parallel")
	pf.StringVar(&sp.cutType, "cut", string(partition.KD), "Cut rule: kd|midpoint|mean|ml|ml-stochastic")
	pf.Float64Var(&sp.minCutLength, "min-cut-length", 0.001, "Minimum region side length before a region stops splitting")
	pf.Float64Var(&sp.minFractionBlock, "min-fraction-block", 0.01, "Minimum pooled sample fraction before a region stops splitting")
	pf.BoolVar(&sp.smoothing, "smooth", true, "Local Gaussian smoothing of leaf densities")
	pf.Float64Var(&sp.smoothRate, "smooth-rate", 0.5, "Additive pseudo-count for subsets with no samples in a block")
	pf.BoolVar(&sp.match, "match", true, "Discrepancy-minimizing pairing (pairwise only)")
	pf.Int64VarP(&sp.randomSeed, "seed", "r", 1, "Random seed to use")

	rootCmd.AddCommand(
		runCmd(sp, "onestage", "Aggregate all sub-chains in a single forest pass"),
		runCmd(sp, "pairwise", "Aggregate sub-chains recursively two at a time"),
		dotCmd(sp),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
