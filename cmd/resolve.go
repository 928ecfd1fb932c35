package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
	"github.com/hollomancer/sbir-analytics-sub010/internal/resolve"
)

var resolveShowMatches bool

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Run vendor resolution only and report match statistics",
	Long:  "Resolves each stored award's recipient against the contract index and prints per-method match counts without scoring. Useful for tuning fuzzy thresholds.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

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

		index := resolve.BuildIndex(contracts)
		resolver := resolve.NewResolver(
			resolve.TokenSetSimilarity{},
			cfg.Detect.VendorMatching.PriorityOrder,
			cfg.Detect.VendorMatching.FuzzyThreshold,
		)

		byMethod := map[model.MatchMethod]int{}
		matched := 0
		for i := range awards {
			a := &awards[i]
			from, to := resolve.WindowBounds(a.CompletionDate, cfg.Detect.TimingWindow.MinMonths, cfg.Detect.TimingWindow.MaxMonths)
			pool := index.Candidates(a.Agency, from, to, cfg.Detect.CandidatePool.RestrictAgency)
			m := resolver.Resolve(a, pool)
			if m == nil {
				continue
			}
			matched++
			byMethod[m.Method]++
			if resolveShowMatches {
				fmt.Printf("%s -> %s (%s, confidence %.2f)\n", a.ID, m.Candidate.Contract.PIID, m.Method, m.Confidence)
			}
		}

		fmt.Printf("awards: %d, matched: %d", len(awards), matched)
		if len(awards) > 0 {
			fmt.Printf(" (%.1f%%)", 100*float64(matched)/float64(len(awards)))
		}
		fmt.Println()
		for _, method := range []model.MatchMethod{model.MatchUEI, model.MatchCAGE, model.MatchDUNS, model.MatchFuzzyName} {
			if n := byMethod[method]; n > 0 {
				fmt.Printf("  %-10s %d\n", method, n)
			}
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveShowMatches, "show-matches", false, "print each award's best match")
	rootCmd.AddCommand(resolveCmd)
}
