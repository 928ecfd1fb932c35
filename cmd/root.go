package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hollomancer/sbir-analytics-sub010/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "sbir-analytics",
	Short: "SBIR/STTR transition detection engine",
	Long:  "Links SBIR/STTR research awards to follow-on federal contracts: vendor resolution, signal scoring, evidence generation, and dual-perspective analytics.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// signalContext wraps the command context with SIGINT/SIGTERM cancellation.
// Batch runs stop at the next batch boundary and still record their final
// status instead of leaving the run row stuck in running.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
