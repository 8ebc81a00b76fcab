// Carto - Dependency-aware codebase cartography for AI agents.
//
// Carto ingests a repository, builds a weighted file dependency graph,
// and partitions it into bounded-size clusters an AI agent can load
// one at a time.
package main

import (
	"fmt"
	"os"

	"github.com/cartograph/carto/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
