package signal

import (
	"github.com/hollomancer/sbir-analytics-sub010/internal/config"
	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
)

// Competition maps the contract's competition category to its configured
// fixed score. Sole-source scores highest: an uncompeted follow-on more
// strongly implies continuity with the original research.
func Competition(contract *model.FederalContract, scores config.CompetitionScores) model.SignalValue {
	switch contract.Competition {
	case model.CompetitionSoleSource:
		return present(scores.SoleSource)
	case model.CompetitionLimited:
		return present(scores.Limited)
	default:
		return present(scores.FullOpen)
	}
}
