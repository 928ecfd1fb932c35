package detect

import (
	"fmt"
	"time"

	"github.com/hollomancer/sbir-analytics-sub010/internal/config"
	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
)

// finishRun computes the run's quality metrics, evaluates the gates, and
// stamps the terminal status. Failed awards count against completion but not
// against the match rate, which only considers successfully processed awards.
func finishRun(run *model.DetectionRun, cfg config.DetectConfig) {
	if run.TotalAwards > 0 {
		completed := run.Processed - run.Failed
		run.CompletionRate = float64(completed) / float64(run.TotalAwards)
		if completed > 0 {
			run.MatchRate = float64(run.Matched) / float64(completed)
		}
	}

	run.GateFailures = evaluateGates(run, cfg)
	run.GatePassed = len(run.GateFailures) == 0
	run.Status = model.RunStatusComplete
	now := time.Now().UTC()
	run.FinishedAt = &now
}

// evaluateGates returns a human-readable line per failed quality gate.
func evaluateGates(run *model.DetectionRun, cfg config.DetectConfig) []string {
	var failures []string
	if run.CompletionRate < cfg.MinCompletionRate {
		failures = append(failures, fmt.Sprintf(
			"completion rate %.4f below minimum %.4f (%d of %d awards failed)",
			run.CompletionRate, cfg.MinCompletionRate, run.Failed, run.TotalAwards))
	}
	if run.MatchRate < cfg.MinMatchRate {
		failures = append(failures, fmt.Sprintf(
			"match rate %.4f below minimum %.4f (%d matched of %d completed)",
			run.MatchRate, cfg.MinMatchRate, run.Matched, run.Processed-run.Failed))
	}
	return failures
}
