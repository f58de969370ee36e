package main

import "github.com/partlab/partree/cmd"

// TODO: accept a whitespace-delimited sub-chain format in addition to CSV

// TODO: expose the forest density query as a CLI command for evaluation
//       against a known reference density

func main() {
	cmd.Execute()
}
