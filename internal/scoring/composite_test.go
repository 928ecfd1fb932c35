package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollomancer/sbir-analytics-sub010/internal/config"
	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
)

func defaultScoring() (config.ScoringConfig, config.ConfidenceConfig) {
	d := config.DefaultDetect()
	return d.Scoring, d.Confidence
}

func sig(score float64) model.SignalValue {
	return model.SignalValue{Score: score, Present: true}
}

func TestComputeStrongContinuation(t *testing.T) {
	t.Parallel()
	sc, conf := defaultScoring()

	// Same agency, contract inside the peak, sole-source, no optional feeds:
	// 0.15 + 0.30 + 0.25 + 0.15 = 0.85, exactly the high-tier floor.
	sigs := model.Signals{
		Agency:      sig(1),
		Timing:      sig(1),
		Competition: sig(1),
	}
	res, err := Compute(sigs, sc, conf)
	require.NoError(t, err)
	assert.InDelta(t, 0.85, res.Score, 1e-9)
	assert.Equal(t, model.TierHigh, res.Tier)
}

func TestComputeWeakPairing(t *testing.T) {
	t.Parallel()
	sc, conf := defaultScoring()

	// Everything scoreable says no, but the technology areas align:
	// 0.15 baseline + 1.0 * 0.05 = 0.20, still a recorded possible.
	sigs := model.Signals{
		Agency:      sig(0),
		Timing:      sig(0),
		Competition: sig(0),
		CET:         sig(1),
	}
	res, err := Compute(sigs, sc, conf)
	require.NoError(t, err)
	assert.InDelta(t, 0.20, res.Score, 1e-9)
	assert.Equal(t, model.TierPossible, res.Tier)
}

func TestComputeAbsentOptionalSignals(t *testing.T) {
	t.Parallel()
	sc, conf := defaultScoring()

	// Absent patent/CET/text contribute nothing; the same present signals
	// with zero scores would compute identically.
	withAbsent := model.Signals{Agency: sig(1), Timing: sig(0.5), Competition: sig(0.3)}
	withZero := withAbsent
	withZero.Patent = sig(0)
	withZero.CET = sig(0)

	a, err := Compute(withAbsent, sc, conf)
	require.NoError(t, err)
	b, err := Compute(withZero, sc, conf)
	require.NoError(t, err)
	assert.Equal(t, a.Score, b.Score)
}

func TestComputeRequiredSignalMissing(t *testing.T) {
	t.Parallel()
	sc, conf := defaultScoring()

	sigs := model.Signals{
		Agency:      sig(1),
		Competition: sig(1),
		// Timing never extracted: an upstream failure, not a zero.
	}
	_, err := Compute(sigs, sc, conf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required signal timing_proximity missing")
}

func TestComputeRequiredMissingButDisabled(t *testing.T) {
	t.Parallel()
	sc, conf := defaultScoring()
	sc.Weights.Timing = 0

	// A zero weight disables the signal entirely, including the
	// required-presence check.
	sigs := model.Signals{Agency: sig(1), Competition: sig(1)}
	res, err := Compute(sigs, sc, conf)
	require.NoError(t, err)
	assert.InDelta(t, 0.60, res.Score, 1e-9)
}

func TestComputeSignalOutOfRange(t *testing.T) {
	t.Parallel()
	sc, conf := defaultScoring()

	sigs := model.Signals{
		Agency:      sig(1.5),
		Timing:      sig(1),
		Competition: sig(1),
	}
	_, err := Compute(sigs, sc, conf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestComputeDeterministic(t *testing.T) {
	t.Parallel()
	sc, conf := defaultScoring()

	sigs := model.Signals{
		Agency:      sig(1),
		Timing:      sig(0.7321),
		Competition: sig(0.6),
		Patent:      sig(0.45),
		CET:         sig(1),
	}
	first, err := Compute(sigs, sc, conf)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		res, err := Compute(sigs, sc, conf)
		require.NoError(t, err)
		assert.Equal(t, first, res, "identical inputs must always score identically")
	}
}

func TestClassifyPartition(t *testing.T) {
	t.Parallel()
	conf := config.ConfidenceConfig{HighThreshold: 0.85, LikelyThreshold: 0.65}

	tests := []struct {
		score float64
		want  model.ConfidenceTier
	}{
		{1.00, model.TierHigh},
		{0.85, model.TierHigh},
		{0.8499, model.TierLikely},
		{0.65, model.TierLikely},
		{0.6499, model.TierPossible},
		{0.20, model.TierPossible},
		{0.0, model.TierPossible},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.score, conf), "score %.4f", tt.score)
	}
}
