package model

import "time"

// MatchMethod names the identifier type that produced a vendor match.
type MatchMethod string

const (
	MatchUEI       MatchMethod = "uei"
	MatchCAGE      MatchMethod = "cage"
	MatchDUNS      MatchMethod = "duns"
	MatchFuzzyName MatchMethod = "fuzzy_name"
)

// VendorMatch relates an award recipient to a single contract recipient.
// Recomputed from current identifier data each run; never persisted as
// authoritative state.
type VendorMatch struct {
	ContractID string      `json:"contract_id"`
	Method     MatchMethod `json:"method"`
	Confidence float64     `json:"confidence"`
}

// SignalName identifies one transition signal.
type SignalName string

const (
	SignalAgency      SignalName = "agency_continuity"
	SignalTiming      SignalName = "timing_proximity"
	SignalCompetition SignalName = "competition_type"
	SignalPatent      SignalName = "patent_signal"
	SignalCET         SignalName = "cet_alignment"
	SignalText        SignalName = "text_similarity"
)

// SignalValue is one signal's output. Present distinguishes "no data"
// (absent, contributes nothing) from "data says no" (present with a low
// score); the two are scored differently and must not be conflated.
type SignalValue struct {
	Score   float64 `json:"score"`
	Present bool    `json:"present"`
}

// Signals holds the full ordered signal set for one candidate pair.
// The set is fixed; per-signal enablement lives in configuration.
type Signals struct {
	Agency      SignalValue `json:"agency_continuity"`
	Timing      SignalValue `json:"timing_proximity"`
	Competition SignalValue `json:"competition_type"`
	Patent      SignalValue `json:"patent_signal"`
	CET         SignalValue `json:"cet_alignment"`
	Text        SignalValue `json:"text_similarity"`
}

// NamedSignal pairs a signal name with its value for iteration.
type NamedSignal struct {
	Name  SignalName
	Value SignalValue
}

// All returns the signals in their canonical order.
func (s Signals) All() []NamedSignal {
	return []NamedSignal{
		{SignalAgency, s.Agency},
		{SignalTiming, s.Timing},
		{SignalCompetition, s.Competition},
		{SignalPatent, s.Patent},
		{SignalCET, s.CET},
		{SignalText, s.Text},
	}
}

// ConfidenceTier classifies a composite score.
type ConfidenceTier string

const (
	TierHigh     ConfidenceTier = "high"
	TierLikely   ConfidenceTier = "likely"
	TierPossible ConfidenceTier = "possible"
)

// Transition is a detected, scored link from an award to its best follow-on
// contract. Created once per (award, best candidate) per run; never mutated,
// only superseded by a later run.
type Transition struct {
	RunID      string         `json:"run_id"`
	AwardID    string         `json:"award_id"`
	ContractID string         `json:"contract_id"`
	Score      float64        `json:"score"`
	Tier       ConfidenceTier `json:"tier"`
	Match      VendorMatch    `json:"vendor_match"`
	Signals    Signals        `json:"signals"`
	DetectedAt time.Time      `json:"detected_at"`
	// HasEvidence indicates a companion EvidenceBundle was generated.
	HasEvidence bool `json:"has_evidence"`
}

// TransitionProfile is the company-level aggregate recomputed per analytics
// run from the full transition set.
type TransitionProfile struct {
	Company           string  `json:"company"`
	TotalAwards       int     `json:"total_awards"`
	TransitionedCount int     `json:"transitioned_count"`
	SuccessRate       float64 `json:"success_rate"`
	AvgScore          float64 `json:"avg_score"`
}
