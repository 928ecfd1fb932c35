// Package evidence builds, validates, and serializes the audit bundle that
// backs each scored transition.
package evidence

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/hollomancer/sbir-analytics-sub010/internal/config"
	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
)

// Builder packages transitions into evidence bundles above the configured
// score threshold.
type Builder struct {
	threshold float64
	weights   config.WeightConfig
}

// NewBuilder creates a bundle builder. Transitions scoring below threshold
// get no bundle; they are still recorded as low-score transitions, just
// without the full audit trail.
func NewBuilder(threshold float64, weights config.WeightConfig) *Builder {
	return &Builder{threshold: threshold, weights: weights}
}

// Build constructs and validates the evidence bundle for a transition.
// Returns (nil, nil) below the score threshold.
func (b *Builder) Build(t *model.Transition, contract *model.FederalContract, patent *model.PatentEvidence) (*model.EvidenceBundle, error) {
	if t.Score < b.threshold {
		return nil, nil
	}

	bundle := &model.EvidenceBundle{
		SchemaVersion: model.EvidenceSchemaVersion,
		RunID:         t.RunID,
		AwardID:       t.AwardID,
		ContractID:    t.ContractID,
		Score:         t.Score,
		Tier:          t.Tier,
		Match:         t.Match,
		Signals:       t.Signals,
		Contract: model.ContractSummary{
			PIID:            contract.PIID,
			Agency:          contract.Agency,
			ObligatedAmount: contract.ObligatedAmount,
			StartDate:       contract.StartDate,
		},
		Patent:      patent,
		GeneratedAt: t.DetectedAt,
	}

	if err := b.Validate(bundle); err != nil {
		return nil, err
	}
	return bundle, nil
}

// Validate checks bundle completeness: every enabled signal present and
// in-range, every required contract field populated, and the composite score
// in-range. A bundle must validate before it is considered emitted.
func (b *Builder) Validate(bundle *model.EvidenceBundle) error {
	var errs []string

	if bundle.SchemaVersion != model.EvidenceSchemaVersion {
		errs = append(errs, fmt.Sprintf("schema version %d, want %d", bundle.SchemaVersion, model.EvidenceSchemaVersion))
	}
	if bundle.AwardID == "" {
		errs = append(errs, "award id empty")
	}
	if bundle.ContractID == "" {
		errs = append(errs, "contract id empty")
	}
	if bundle.Score < 0 || bundle.Score > 1 {
		errs = append(errs, fmt.Sprintf("score %f out of range", bundle.Score))
	}
	if bundle.Match.Confidence <= 0 || bundle.Match.Confidence > 1 {
		errs = append(errs, fmt.Sprintf("match confidence %f out of range", bundle.Match.Confidence))
	}

	required := map[model.SignalName]bool{
		model.SignalAgency:      b.weights.Agency > 0,
		model.SignalTiming:      b.weights.Timing > 0,
		model.SignalCompetition: b.weights.Competition > 0,
	}
	for _, ns := range bundle.Signals.All() {
		if required[ns.Name] && !ns.Value.Present {
			errs = append(errs, fmt.Sprintf("signal %s missing", ns.Name))
		}
		if ns.Value.Present && (ns.Value.Score < 0 || ns.Value.Score > 1) {
			errs = append(errs, fmt.Sprintf("signal %s score %f out of range", ns.Name, ns.Value.Score))
		}
	}

	// Contract summary fields; amount may legitimately be zero.
	if bundle.Contract.PIID == "" {
		errs = append(errs, "contract summary: piid empty")
	}
	if bundle.Contract.Agency == "" {
		errs = append(errs, "contract summary: agency empty")
	}
	if bundle.Contract.StartDate.IsZero() {
		errs = append(errs, "contract summary: start date missing")
	}

	if len(errs) > 0 {
		return eris.Errorf("evidence: bundle for award %s invalid: %s", bundle.AwardID, strings.Join(errs, "; "))
	}
	return nil
}

// Marshal serializes a bundle to its self-describing JSON document form.
// Serialization is lossless: Unmarshal(Marshal(b)) reproduces the same
// signal values and score.
func Marshal(bundle *model.EvidenceBundle) ([]byte, error) {
	data, err := json.Marshal(bundle)
	if err != nil {
		return nil, eris.Wrapf(err, "evidence: marshal bundle for award %s", bundle.AwardID)
	}
	return data, nil
}

// Unmarshal deserializes a bundle document.
func Unmarshal(data []byte) (*model.EvidenceBundle, error) {
	var bundle model.EvidenceBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, eris.Wrap(err, "evidence: unmarshal bundle")
	}
	if bundle.SchemaVersion != model.EvidenceSchemaVersion {
		return nil, eris.Errorf("evidence: unsupported schema version %d", bundle.SchemaVersion)
	}
	return &bundle, nil
}
