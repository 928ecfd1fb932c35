package signal

import (
	"math"

	"github.com/hollomancer/sbir-analytics-sub010/internal/config"
	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
	"github.com/hollomancer/sbir-analytics-sub010/internal/resolve"
)

// Timing is the timing-proximity signal. It is only ever evaluated for
// contracts inside the configured window — out-of-window contracts were
// excluded upstream and are never candidates. Within the window the score is
// 1.0 up to the peak, then decays monotonically toward the floor at the
// window boundary.
func Timing(award *model.Award, contract *model.FederalContract, decay config.TimingDecayConfig, window config.TimingWindowConfig) model.SignalValue {
	gap := resolve.ElapsedMonths(award.CompletionDate, contract.StartDate)
	return present(Decay(gap, decay, window))
}

// Decay maps an elapsed gap in months to a [floor, 1.0] proximity score.
func Decay(gapMonths float64, decay config.TimingDecayConfig, window config.TimingWindowConfig) float64 {
	if gapMonths <= decay.PeakMonths {
		return 1.0
	}

	span := float64(window.MaxMonths) - decay.PeakMonths
	if span <= 0 {
		return 1.0
	}
	if gapMonths >= float64(window.MaxMonths) {
		return decay.Floor
	}

	switch decay.Curve {
	case "exponential":
		// Half-life decay from 1.0 at the peak, renormalized so the window
		// boundary lands exactly on the floor.
		raw := math.Pow(2, -(gapMonths-decay.PeakMonths)/decay.HalfLifeMonths)
		boundary := math.Pow(2, -span/decay.HalfLifeMonths)
		scaled := decay.Floor + (1.0-decay.Floor)*(raw-boundary)/(1.0-boundary)
		return clamp01(scaled)
	default: // linear
		frac := (gapMonths - decay.PeakMonths) / span
		return 1.0 - (1.0-decay.Floor)*frac
	}
}
