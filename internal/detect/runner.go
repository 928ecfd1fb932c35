package detect

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hollomancer/sbir-analytics-sub010/internal/config"
	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
	"github.com/hollomancer/sbir-analytics-sub010/internal/signal"
)

// Sink receives the run's output as it is produced, batch by batch. The
// store satisfies it directly; the run row is created before any transition
// references it.
type Sink interface {
	CreateRun(ctx context.Context, run *model.DetectionRun) error
	WriteTransition(ctx context.Context, t *model.Transition) error
	WriteEvidence(ctx context.Context, b *model.EvidenceBundle) error
	FinishRun(ctx context.Context, run *model.DetectionRun) error
}

// Runner processes awards in fixed-size batches with a bounded worker pool.
// Awards are independent: workers share only the read-only contract index,
// so batch boundaries and parallelism never affect scoring output.
type Runner struct {
	det *Detector
	cfg config.DetectConfig
}

// NewRunner creates a batch runner over a detector.
func NewRunner(det *Detector, cfg config.DetectConfig) *Runner {
	return &Runner{det: det, cfg: cfg}
}

// PatentFeed keys pre-fetched patent records by award id.
type PatentFeed map[string][]model.Patent

// Run executes detection over all awards and emits results to the sink.
// A single award's failure never aborts the run; quality is evaluated at the
// end against the configured gates. Cancellation is honored between batches.
func (r *Runner) Run(ctx context.Context, awards []model.Award, patents PatentFeed, sink Sink) (*model.DetectionRun, error) {
	run := &model.DetectionRun{
		ID:          uuid.NewString(),
		ConfigHash:  r.cfg.Hash(),
		Status:      model.RunStatusRunning,
		TotalAwards: len(awards),
		StartedAt:   time.Now().UTC(),
	}

	log := zap.L().With(
		zap.String("component", "detect_runner"),
		zap.String("run_id", run.ID),
	)
	log.Info("detection run starting",
		zap.Int("awards", len(awards)),
		zap.Int("contracts", r.det.index.Size()),
		zap.Int("batch_size", r.cfg.BatchSize),
		zap.Int("workers", r.cfg.Workers),
	)

	if err := sink.CreateRun(ctx, run); err != nil {
		run.Status = model.RunStatusFailed
		return run, err
	}

	for start := 0; start < len(awards); start += r.cfg.BatchSize {
		// Run-level cancellation: stop cleanly at a batch boundary.
		if err := ctx.Err(); err != nil {
			r.markFailed(ctx, sink, run)
			return run, eris.Wrap(err, "detect: run cancelled")
		}

		end := start + r.cfg.BatchSize
		if end > len(awards) {
			end = len(awards)
		}
		batch := awards[start:end]

		results, err := r.processBatch(ctx, batch, patents, run.ID, run.StartedAt)
		if err != nil {
			r.markFailed(ctx, sink, run)
			return run, err
		}

		if err := r.emit(ctx, results, sink, run); err != nil {
			r.markFailed(ctx, sink, run)
			return run, err
		}

		log.Info("batch complete",
			zap.Int("processed", run.Processed),
			zap.Int("total", run.TotalAwards),
			zap.Int("emitted", run.Emitted),
			zap.Int("failed", run.Failed),
		)
	}

	finishRun(run, r.cfg)
	if err := sink.FinishRun(ctx, run); err != nil {
		return run, err
	}

	log.Info("detection run complete",
		zap.Int("emitted", run.Emitted),
		zap.Int("no_candidate", run.NoCandidate),
		zap.Int("failed", run.Failed),
		zap.Float64("completion_rate", run.CompletionRate),
		zap.Float64("match_rate", run.MatchRate),
		zap.Bool("gate_passed", run.GatePassed),
	)

	return run, nil
}

// markFailed records the terminal failed status, surviving cancellation of
// the run context.
func (r *Runner) markFailed(ctx context.Context, sink Sink, run *model.DetectionRun) {
	run.Status = model.RunStatusFailed
	now := time.Now().UTC()
	run.FinishedAt = &now
	if err := sink.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		zap.L().Warn("detect: record failed run", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// processBatch fans awards out to workers and collects results in a
// positionally-indexed slice, so output order is independent of worker
// scheduling.
func (r *Runner) processBatch(ctx context.Context, batch []model.Award, patents PatentFeed, runID string, detectedAt time.Time) ([]AwardResult, error) {
	results := make([]AwardResult, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for i := range batch {
		award := &batch[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.det.DetectOne(award, signal.Feeds{Patents: patents[award.ID]}, runID, detectedAt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "detect: batch workers")
	}

	// Stable emission order regardless of parallelism.
	sort.SliceStable(results, func(i, j int) bool { return results[i].AwardID < results[j].AwardID })
	return results, nil
}

func (r *Runner) emit(ctx context.Context, results []AwardResult, sink Sink, run *model.DetectionRun) error {
	for _, res := range results {
		run.Processed++
		switch res.Outcome {
		case OutcomeEmitted:
			run.Emitted++
			run.Matched++
			if err := sink.WriteTransition(ctx, res.Transition); err != nil {
				return eris.Wrapf(err, "detect: write transition for award %s", res.AwardID)
			}
			if res.Evidence != nil {
				if err := sink.WriteEvidence(ctx, res.Evidence); err != nil {
					return eris.Wrapf(err, "detect: write evidence for award %s", res.AwardID)
				}
			}
		case OutcomeNoCandidate:
			run.NoCandidate++
		case OutcomeFailed:
			run.Failed++
			zap.L().Warn("detect: award skipped",
				zap.String("run_id", run.ID),
				zap.String("award_id", res.AwardID),
				zap.String("error", res.Err),
			)
		}
	}
	return nil
}
