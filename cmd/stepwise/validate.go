package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/florelab/stepwise/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the step graph for consistency",
	Long:  `Crawls the graph from the entry step and reports branches to unknown steps, undeclared branch targets, and unreachable steps.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		reg, err := buildRegistry(cmd, cfg, demoVerifier())
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}

		if err := reg.Validate(); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Graph is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
