package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/florelab/stepwise/internal/config"
	"github.com/florelab/stepwise/pkg/adapters/memory"
	"github.com/florelab/stepwise/pkg/flows/configurator"
	"github.com/florelab/stepwise/pkg/ports"
	"github.com/florelab/stepwise/pkg/registry"
)

var rootCmd = &cobra.Command{
	Use:   "stepwise",
	Short: "Stepwise is a branching product-configuration wizard engine",
	Long:  `Stepwise walks users through a directed graph of configuration steps, with branching, skip chains, and durable answers.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("flow", "", "YAML flow file (default: built-in product configurator)")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory for the file-backed session store")
}

// buildRegistry returns the step graph selected by the --flow flag, falling
// back to the config file setting and then to the built-in configurator.
func buildRegistry(cmd *cobra.Command, cfg config.Config, verifier ports.CodeVerifier) (*registry.Registry, error) {
	flowFile, _ := cmd.Flags().GetString("flow")
	if flowFile == "" {
		flowFile = cfg.FlowFile
	}
	if flowFile != "" {
		return registry.LoadFlowFile(flowFile)
	}
	return configurator.New(verifier), nil
}

// demoVerifier backs local runs: one registered account so both branches of
// the flow are exercisable without external services.
func demoVerifier() *memory.Verifier {
	v := memory.NewVerifier()
	v.Register("demo@florelab.com", "123456")
	return v
}

func dataDir(cmd *cobra.Command, cfg config.Config) string {
	dir, _ := cmd.Flags().GetString("data-dir")
	if dir == "" {
		dir = cfg.DataDir
	}
	return dir
}
