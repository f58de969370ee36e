package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/partlab/partree/aggregate"
)

func dotCmd(sp *startupParams) *cobra.Command {
	return &cobra.Command{
		Use:   "dot",
		Short: "Build one partition tree and print it as graphviz",
		RunE: func(cmd *cobra.Command, args []string) error {
			cleanup, err := sp.startup()
			if err != nil {
				return err
			}
			defer cleanup()
			return dotOutput(sp)
		},
	}
}

// dotOutput builds a single partition tree over the input sub-chains and
// writes a graphviz description of it: internal nodes show their cut, leaves
// show their normalized probability and per-subset counts.
func dotOutput(sp *startupParams) error {
	chains, err := loadChains(sp)
	if err != nil {
		return err
	}

	cfg, err := sp.config()
	if err != nil {
		return err
	}
	cfg.NTree = 1

	f, err := aggregate.OneStageForest(chains, cfg)
	if err != nil {
		return err
	}
	tr := f.Trees[0]
	sp.out.Printf("Tree has %d nodes, %d leaves\n", len(tr.Nodes), len(tr.Leaves))

	var target *log.Logger
	if len(sp.traceFile) > 0 {
		sp.out.Printf("Writing tree to trace file %v\n", sp.traceFile)
		target = sp.trace
	} else {
		target = sp.out
	}

	// Start graph
	target.Printf("digraph T {\n")
	target.Printf("    node [shape=box];\n")

	for i := range tr.Nodes {
		nd := &tr.Nodes[i]
		if nd.IsLeaf() {
			target.Printf("    n%d [label=\"p=%.4g\\ncounts=%v\"];\n", i, nd.Prob, nd.Counts)
			continue
		}
		target.Printf("    n%d [label=\"x[%d] < %.4g\"];\n", i, nd.CutDim, nd.CutVal)
		target.Printf("    n%d -> n%d;\n", i, nd.Left)
		target.Printf("    n%d -> n%d;\n", i, nd.Right)
	}

	// Finish graph
	target.Printf("}\n")

	return nil
}
