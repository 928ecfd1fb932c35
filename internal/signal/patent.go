package signal

import (
	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
	"github.com/hollomancer/sbir-analytics-sub010/internal/resolve"
)

// Patent combines two pieces of patent evidence for the pair: whether any
// patent was filed strictly between award completion and contract start, and
// the best precomputed topic-similarity score (counted only at or above the
// configured threshold). With no patent records the signal is absent, not
// zero. The returned PatentEvidence carries the non-scoring assignee detail.
func Patent(award *model.Award, contract *model.FederalContract, patents []model.Patent, simThreshold float64) (model.SignalValue, *model.PatentEvidence) {
	if len(patents) == 0 {
		return absent, nil
	}

	ev := &model.PatentEvidence{}
	firmNorm := resolve.NormalizeName(award.Firm)

	for _, p := range patents {
		if !p.FilingDate.IsZero() &&
			p.FilingDate.After(award.CompletionDate) &&
			p.FilingDate.Before(contract.StartDate) {
			ev.FiledInWindow = true
		}
		if p.TopicSimilarity != nil && *p.TopicSimilarity > ev.TopicSimilarity {
			ev.TopicSimilarity = *p.TopicSimilarity
			ev.Assignee = p.Assignee
		}
		if ev.Assignee == "" && p.Assignee != "" {
			ev.Assignee = p.Assignee
		}
	}

	if ev.Assignee != "" && firmNorm != "" {
		ev.AssigneeDiffers = resolve.NormalizeName(ev.Assignee) != firmNorm
	}

	score := 0.0
	if ev.FiledInWindow {
		score += 0.5
	}
	if ev.TopicSimilarity >= simThreshold {
		score += 0.5 * ev.TopicSimilarity
	}
	return present(score), ev
}
