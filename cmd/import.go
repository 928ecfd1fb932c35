package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hollomancer/sbir-analytics-sub010/internal/fetcher"
	"github.com/hollomancer/sbir-analytics-sub010/internal/ingest"
	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
	"github.com/hollomancer/sbir-analytics-sub010/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load award, contract, patent, and technology-area label extracts into the store",
}

var importAwardsCmd = &cobra.Command{
	Use:   "awards <path-or-url>",
	Short: "Import an SBIR/STTR award extract (CSV or XLSX)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()
		return runImport(ctx, args[0], func(ctx context.Context, s store.Store, path string) (int64, []ingest.RecordError, error) {
			var (
				awards  []model.Award
				rejects []ingest.RecordError
				err     error
			)
			if strings.EqualFold(filepath.Ext(path), ".xlsx") {
				awards, rejects, err = ingest.ParseAwardsXLSX(ctx, path)
			} else {
				var f *os.File
				f, err = os.Open(path)
				if err != nil {
					return 0, nil, eris.Wrap(err, "open award extract")
				}
				defer f.Close()
				awards, rejects, err = ingest.ParseAwards(ctx, f)
			}
			if err != nil {
				return 0, nil, err
			}
			n, err := s.UpsertAwards(ctx, awards)
			return n, rejects, err
		})
	},
}

var importContractsCmd = &cobra.Command{
	Use:   "contracts <path-or-url>",
	Short: "Import a federal contract extract (CSV, optionally zipped)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()
		return runImport(ctx, args[0], func(ctx context.Context, s store.Store, path string) (int64, []ingest.RecordError, error) {
			if strings.EqualFold(filepath.Ext(path), ".zip") {
				extracted, err := fetcher.ExtractZIPSingle(path, cfg.Fetch.TempDir)
				if err != nil {
					return 0, nil, err
				}
				defer os.Remove(extracted)
				path = extracted
			}
			f, err := os.Open(path)
			if err != nil {
				return 0, nil, eris.Wrap(err, "open contract extract")
			}
			defer f.Close()

			contracts, rejects, err := ingest.ParseContracts(ctx, f)
			if err != nil {
				return 0, nil, err
			}
			n, err := s.UpsertContracts(ctx, contracts)
			return n, rejects, err
		})
	},
}

var importPatentsCmd = &cobra.Command{
	Use:   "patents <path-or-url>",
	Short: "Import a patent feed keyed by award id (CSV)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()
		return runImport(ctx, args[0], func(ctx context.Context, s store.Store, path string) (int64, []ingest.RecordError, error) {
			f, err := os.Open(path)
			if err != nil {
				return 0, nil, eris.Wrap(err, "open patent feed")
			}
			defer f.Close()

			patents, rejects, err := ingest.ParsePatents(ctx, f)
			if err != nil {
				return 0, nil, err
			}
			n, err := s.UpsertPatents(ctx, patents)
			return n, rejects, err
		})
	},
}

var importCETCmd = &cobra.Command{
	Use:   "cet <path-or-url>",
	Short: "Overlay technology-area labels onto stored awards and contracts (CSV)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()
		return runImport(ctx, args[0], func(ctx context.Context, s store.Store, path string) (int64, []ingest.RecordError, error) {
			f, err := os.Open(path)
			if err != nil {
				return 0, nil, eris.Wrap(err, "open cet label feed")
			}
			defer f.Close()

			labels, rejects, err := ingest.ParseCETLabels(ctx, f)
			if err != nil {
				return 0, nil, err
			}
			n, err := s.ApplyCETLabels(ctx, labels)
			return n, rejects, err
		})
	},
}

// runImport resolves the source (downloading URLs to the temp directory),
// opens the store, and runs the load. Rejected rows are logged, not fatal.
func runImport(ctx context.Context, source string, load func(context.Context, store.Store, string) (int64, []ingest.RecordError, error)) error {
	path := source
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		if err := os.MkdirAll(cfg.Fetch.TempDir, 0o755); err != nil {
			return eris.Wrap(err, "create temp dir")
		}
		path = filepath.Join(cfg.Fetch.TempDir, filepath.Base(source))
		f := fetcher.NewHTTPFetcher(cfg.Fetch)
		n, err := f.DownloadToFile(ctx, source, path)
		if err != nil {
			return err
		}
		defer os.Remove(path)
		zap.L().Info("downloaded extract", zap.String("url", source), zap.Int64("bytes", n))
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	n, rejects, err := load(ctx, s, path)
	if err != nil {
		return err
	}

	for _, rej := range rejects {
		zap.L().Warn("rejected row", zap.Int("line", rej.Line), zap.String("error", rej.Err))
	}
	zap.L().Info("import complete",
		zap.String("source", source),
		zap.Int64("rows", n),
		zap.Int("rejected", len(rejects)),
	)
	return nil
}

func init() {
	importCmd.AddCommand(importAwardsCmd, importContractsCmd, importPatentsCmd, importCETCmd)
	rootCmd.AddCommand(importCmd)
}
