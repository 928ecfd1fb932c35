package signal

import (
	"strings"

	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
)

// CET is the technology-area alignment signal: 1.0 when both labels are
// present and equal, 0.0 when both are present and differ, and absent when
// either label is missing — a missing label contributes nothing rather than
// penalizing the pair.
func CET(award *model.Award, contract *model.FederalContract) model.SignalValue {
	a := normalizeLabel(award.CETLabel)
	c := normalizeLabel(contract.CETLabel)
	if a == "" || c == "" {
		return absent
	}
	if a == c {
		return present(1)
	}
	return present(0)
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
