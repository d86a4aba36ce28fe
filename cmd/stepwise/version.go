package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/florelab/stepwise"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of stepwise",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stepwise version %s\n", strings.TrimSpace(stepwise.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
