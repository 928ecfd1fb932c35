// Package scoring combines the per-pair signal set into a composite
// likelihood score and confidence tier. Scoring is a pure function of the
// signals and the configured weights: identical inputs always produce an
// identical score and tier.
package scoring

import (
	"github.com/rotisserie/eris"

	"github.com/hollomancer/sbir-analytics-sub010/internal/config"
	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
)

// Result is a scored, classified candidate pair.
type Result struct {
	Score float64
	Tier  model.ConfidenceTier
}

// Compute produces the composite score: baseline prior plus the weighted sum
// of every enabled, present signal, clamped to [0, 1].
//
// The always-computable signals (agency, timing, competition) are required
// when enabled: a missing value there means an extractor failed, which is an
// audit problem, not a zero — the pair is failed explicitly. Optional feed
// signals (patent, CET, text) may be absent and then contribute nothing.
func Compute(sigs model.Signals, sc config.ScoringConfig, conf config.ConfidenceConfig) (Result, error) {
	w := sc.Weights

	type term struct {
		name     model.SignalName
		value    model.SignalValue
		weight   float64
		required bool
	}
	terms := []term{
		{model.SignalAgency, sigs.Agency, w.Agency, true},
		{model.SignalTiming, sigs.Timing, w.Timing, true},
		{model.SignalCompetition, sigs.Competition, w.Competition, true},
		{model.SignalPatent, sigs.Patent, w.Patent, false},
		{model.SignalCET, sigs.CET, w.CET, false},
		{model.SignalText, sigs.Text, w.TextSimilarity, false},
	}

	score := sc.Baseline
	for _, t := range terms {
		if t.weight <= 0 {
			continue
		}
		if !t.value.Present {
			if t.required {
				return Result{}, eris.Errorf("scoring: required signal %s missing", t.name)
			}
			continue
		}
		if t.value.Score < 0 || t.value.Score > 1 {
			return Result{}, eris.Errorf("scoring: signal %s out of range: %f", t.name, t.value.Score)
		}
		score += t.value.Score * t.weight
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return Result{Score: score, Tier: Classify(score, conf)}, nil
}

// Classify maps a composite score to its confidence tier. The tiers
// partition [0, 1] with no gaps or overlaps.
func Classify(score float64, conf config.ConfidenceConfig) model.ConfidenceTier {
	switch {
	case score >= conf.HighThreshold:
		return model.TierHigh
	case score >= conf.LikelyThreshold:
		return model.TierLikely
	default:
		return model.TierPossible
	}
}
