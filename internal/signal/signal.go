// Package signal implements the per-candidate-pair transition signals. Each
// extractor is a pure function of its inputs with no shared mutable state;
// the signal set is fixed and enablement is a configuration concern.
package signal

import (
	"github.com/hollomancer/sbir-analytics-sub010/internal/config"
	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
	"github.com/hollomancer/sbir-analytics-sub010/internal/resolve"
)

// Feeds carries the optional pre-fetched external inputs for one award.
// Nothing here is queried live during scoring.
type Feeds struct {
	Patents []model.Patent
}

// absent is the no-data value: contributes nothing, does not penalize.
var absent = model.SignalValue{Score: 0, Present: false}

func present(score float64) model.SignalValue {
	return model.SignalValue{Score: clamp01(score), Present: true}
}

// ExtractAll computes the full signal set for one candidate pair, plus the
// non-scoring patent evidence detail when patents were supplied.
func ExtractAll(award *model.Award, contract *model.FederalContract, feeds Feeds, textSim resolve.Similarity, cfg config.ScoringConfig, window config.TimingWindowConfig) (model.Signals, *model.PatentEvidence) {
	patent, patentEv := Patent(award, contract, feeds.Patents, cfg.Patent.SimilarityThreshold)

	sigs := model.Signals{
		Agency:      Agency(award, contract),
		Timing:      Timing(award, contract, cfg.Timing, window),
		Competition: Competition(contract, cfg.Competition),
		Patent:      patent,
		CET:         CET(award, contract),
		Text:        absent,
	}
	if cfg.Weights.TextSimilarity > 0 {
		sigs.Text = Text(award, contract, textSim)
	}
	return sigs, patentEv
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
