package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hollomancer/sbir-analytics-sub010/internal/config"
	"github.com/hollomancer/sbir-analytics-sub010/internal/detect"
	"github.com/hollomancer/sbir-analytics-sub010/internal/resolve"
)

var (
	detectPreset      string
	detectPresetsFile string
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run transition detection over all stored awards",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		if detectPreset != "" {
			if err := config.ApplyPreset(&cfg.Detect, detectPreset, detectPresetsFile); err != nil {
				return err
			}
		}
		if err := cfg.Detect.Validate(); err != nil {
			return err
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		awards, err := s.LoadAwards(ctx)
		if err != nil {
			return err
		}
		contracts, err := s.LoadContracts(ctx)
		if err != nil {
			return err
		}
		patents, err := s.LoadPatents(ctx)
		if err != nil {
			return err
		}

		// One-time single-threaded index build; shared read-only by workers.
		index := resolve.BuildIndex(contracts)
		det := detect.NewDetector(cfg.Detect, index, resolve.TokenSetSimilarity{})
		runner := detect.NewRunner(det, cfg.Detect)

		run, err := runner.Run(ctx, awards, patents, s)
		if err != nil {
			return err
		}

		fmt.Printf("run %s: %d awards, %d transitions, %d no-candidate, %d failed\n",
			run.ID, run.TotalAwards, run.Emitted, run.NoCandidate, run.Failed)
		fmt.Printf("completion rate %.4f, match rate %.4f\n", run.CompletionRate, run.MatchRate)

		if !run.GatePassed {
			for _, failure := range run.GateFailures {
				fmt.Fprintf(os.Stderr, "quality gate failed: %s\n", failure)
			}
			zap.L().Error("quality gates failed", zap.Strings("failures", run.GateFailures))
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	detectCmd.Flags().StringVar(&detectPreset, "preset", "", "named configuration preset (precision, discovery)")
	detectCmd.Flags().StringVar(&detectPresetsFile, "presets-file", "", "YAML file with additional presets")
	rootCmd.AddCommand(detectCmd)
}
