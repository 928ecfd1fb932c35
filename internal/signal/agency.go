package signal

import (
	"strings"

	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
)

// Agency is the binary agency-continuity signal: 1.0 when the award agency
// code equals the contract awarding-agency code, 0.0 otherwise. The weight
// carries the softness.
func Agency(award *model.Award, contract *model.FederalContract) model.SignalValue {
	a := strings.ToUpper(strings.TrimSpace(award.Agency))
	c := strings.ToUpper(strings.TrimSpace(contract.Agency))
	if a == "" || c == "" {
		return present(0)
	}
	if a == c {
		return present(1)
	}
	return present(0)
}
