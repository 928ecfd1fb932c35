package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/hollomancer/sbir-analytics-sub010/internal/analytics"
	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
	"github.com/hollomancer/sbir-analytics-sub010/internal/store"
)

var (
	analyzeRunID     string
	analyzeMinSample int
	analyzeFormat    string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Aggregate a run's transitions into award- and company-level rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		runID := analyzeRunID
		if runID == "" {
			runs, err := s.ListRuns(ctx, store.RunFilter{Status: model.RunStatusComplete, Limit: 1})
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				return eris.New("no completed runs to analyze")
			}
			runID = runs[0].ID
		}

		awards, err := s.LoadAwards(ctx)
		if err != nil {
			return err
		}
		transitions, err := s.ListTransitions(ctx, runID)
		if err != nil {
			return err
		}

		summary := analytics.Summarize(awards, transitions, analyzeMinSample)

		switch analyzeFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(summary), "encode summary")
		case "csv":
			return writeSummaryCSV(os.Stdout, summary)
		case "table", "":
			printSummaryTable(runID, summary)
			return nil
		default:
			return eris.Errorf("unknown format %q (want table, json, or csv)", analyzeFormat)
		}
	},
}

func printSummaryTable(runID string, s *analytics.Summary) {
	fmt.Printf("run %s\n", runID)
	fmt.Printf("awards:    %d total, %d transitioned (%.1f%%)\n", s.TotalAwards, s.TransitionedAwards, 100*s.AwardRate)
	fmt.Printf("companies: %d total, %d transitioned (%.1f%%)\n", s.TotalCompanies, s.TransitionedCompanies, 100*s.CompanyRate)

	printDimension := func(name string, rates []analytics.DimensionRate) {
		if len(rates) == 0 {
			return
		}
		fmt.Printf("\nby %s:\n", name)
		for _, d := range rates {
			note := ""
			if !d.Reliable {
				note = "  (small sample)"
			}
			fmt.Printf("  %-24s %5d awards  %5.1f%%%s\n", d.Key, d.Total, 100*d.Rate, note)
		}
	}
	printDimension("phase", s.ByPhase)
	printDimension("agency", s.ByAgency)
	printDimension("technology area", s.ByCET)
}

func writeSummaryCSV(f *os.File, s *analytics.Summary) error {
	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"dimension", "key", "total", "transitioned", "rate", "reliable"}); err != nil {
		return eris.Wrap(err, "write csv header")
	}
	writeDim := func(dim string, rates []analytics.DimensionRate) error {
		for _, d := range rates {
			row := []string{
				dim, d.Key,
				strconv.Itoa(d.Total), strconv.Itoa(d.Transitioned),
				strconv.FormatFloat(d.Rate, 'f', 4, 64),
				strconv.FormatBool(d.Reliable),
			}
			if err := w.Write(row); err != nil {
				return eris.Wrap(err, "write csv row")
			}
		}
		return nil
	}
	if err := writeDim("phase", s.ByPhase); err != nil {
		return err
	}
	if err := writeDim("agency", s.ByAgency); err != nil {
		return err
	}
	return writeDim("cet", s.ByCET)
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeRunID, "run", "", "run id to analyze (default: latest completed run)")
	analyzeCmd.Flags().IntVar(&analyzeMinSample, "min-sample", 10, "minimum slice size for a reliable breakdown rate")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "table", "output format: table, json, or csv")
	rootCmd.AddCommand(analyzeCmd)
}
