package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/florelab/stepwise/internal/config"
	"github.com/florelab/stepwise/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the step graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the step graph: entry and terminal shapes, branch edges, and dotted edges into skippable steps.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		reg, err := buildRegistry(cmd, cfg, demoVerifier())
		if err != nil {
			fmt.Printf("Error loading flow: %v\n", err)
			os.Exit(1)
		}

		fmt.Print(graph.GenerateMermaid(reg, nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
