package signal

import (
	"strings"

	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
	"github.com/hollomancer/sbir-analytics-sub010/internal/resolve"
)

// Text is the optional abstract-vs-description similarity signal. Disabled
// by default (weight 0); absent when either text is empty.
func Text(award *model.Award, contract *model.FederalContract, sim resolve.Similarity) model.SignalValue {
	a := strings.ToUpper(strings.TrimSpace(award.Abstract))
	c := strings.ToUpper(strings.TrimSpace(contract.Description))
	if a == "" || c == "" {
		return absent
	}
	return present(sim.Similarity(a, c))
}
