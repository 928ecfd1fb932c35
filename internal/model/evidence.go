package model

import "time"

// EvidenceSchemaVersion marks the bundle serialization format so downstream
// consumers can detect format changes.
const EvidenceSchemaVersion = 1

// ContractSummary carries the contract fields an evidence bundle must
// preserve for audit.
type ContractSummary struct {
	PIID            string    `json:"piid"`
	Agency          string    `json:"agency"`
	ObligatedAmount float64   `json:"obligated_amount"`
	StartDate       time.Time `json:"start_date"`
}

// PatentEvidence records the non-scoring patent detail behind the patent
// signal. AssigneeDiffers flags likely technology transfer via licensing or
// acquisition rather than direct continuation.
type PatentEvidence struct {
	FiledInWindow   bool    `json:"filed_in_window"`
	TopicSimilarity float64 `json:"topic_similarity"`
	Assignee        string  `json:"assignee"`
	AssigneeDiffers bool    `json:"assignee_differs"`
}

// EvidenceBundle is the 1:1 audit companion to a Transition: every signal's
// inputs and outputs, the contract summary, and the vendor-match detail, in a
// lossless, round-trippable form.
type EvidenceBundle struct {
	SchemaVersion int             `json:"schema_version"`
	RunID         string          `json:"run_id"`
	AwardID       string          `json:"award_id"`
	ContractID    string          `json:"contract_id"`
	Score         float64         `json:"score"`
	Tier          ConfidenceTier  `json:"tier"`
	Match         VendorMatch     `json:"vendor_match"`
	Signals       Signals         `json:"signals"`
	Contract      ContractSummary `json:"contract"`
	Patent        *PatentEvidence `json:"patent,omitempty"`
	GeneratedAt   time.Time       `json:"generated_at"`
}
