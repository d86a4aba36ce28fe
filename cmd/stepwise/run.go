package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/florelab/stepwise"
	"github.com/florelab/stepwise/internal/config"
	"github.com/florelab/stepwise/internal/logging"
	"github.com/florelab/stepwise/internal/presentation/tui"
	"github.com/florelab/stepwise/pkg/adapters/file"
	"github.com/florelab/stepwise/pkg/adapters/memory"
	"github.com/florelab/stepwise/pkg/flows/configurator"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the wizard interactively in the terminal",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger := logging.New(cfg.LogLevel)

		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		debugJump, _ := cmd.Flags().GetBool("debug-jump")

		verifier := demoVerifier()
		reg, err := buildRegistry(cmd, cfg, verifier)
		if err != nil {
			fmt.Printf("Error loading flow: %v\n", err)
			os.Exit(1)
		}

		wiz, err := stepwise.New(reg, sessionID,
			stepwise.WithStore(file.New(dataDir(cmd, cfg))),
			stepwise.WithLogger(logger),
			stepwise.WithJumpEnabled(debugJump || cfg.DebugJump),
		)
		if err != nil {
			fmt.Printf("Error initializing wizard: %v\n", err)
			os.Exit(1)
		}

		tui.PrintBanner()
		fmt.Printf("Session: %s\n\n", sessionID)

		runner := stepwise.NewRunner()
		runner.Renderer = tui.NewRenderer()
		runner.Logger = logger

		ctx := context.Background()
		if err := runner.Run(ctx, wiz); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		if !wiz.Completed() {
			return
		}

		var record configurator.Record
		result, err := wiz.Submit(ctx, memory.NewSink(), &record)
		if err != nil {
			fmt.Printf("Submission failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Design %q submitted as %s\n", record.ProductName, result.Reference)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("session", "s", "", "Session ID to resume (default: new session)")
	runCmd.Flags().Bool("debug-jump", false, "Enable the :jump debug operation")
}
