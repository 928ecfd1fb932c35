// Package model defines the data contracts shared across the detection
// pipeline: awards, federal contracts, patents, vendor matches, transition
// signals, transitions, and evidence bundles.
package model

import (
	"strings"
	"time"
)

// Program identifies the research program an award was issued under.
type Program string

const (
	ProgramSBIR Program = "SBIR"
	ProgramSTTR Program = "STTR"
)

// AwardPhase is the SBIR/STTR phase of an award.
type AwardPhase string

const (
	PhaseI   AwardPhase = "I"
	PhaseII  AwardPhase = "II"
	PhaseIII AwardPhase = "III"
)

// Award is an SBIR/STTR research award record. Consumed read-only;
// immutable once ingested.
type Award struct {
	ID             string     `json:"award_id"`
	Firm           string     `json:"firm"`
	UEI            string     `json:"uei,omitempty"`
	CAGE           string     `json:"cage,omitempty"`
	DUNS           string     `json:"duns,omitempty"`
	Agency         string     `json:"agency"`
	Phase          AwardPhase `json:"phase"`
	Program        Program    `json:"program"`
	CompletionDate time.Time  `json:"completion_date"`
	CETLabel       string     `json:"cet_label,omitempty"`
	Title          string     `json:"title,omitempty"`
	Abstract       string     `json:"abstract,omitempty"`
}

// ParsePhase maps raw phase strings ("Phase II", "2", "II") to an AwardPhase.
// Unrecognized values return an empty phase.
func ParsePhase(s string) AwardPhase {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "PHASE")
	s = strings.TrimSpace(s)
	switch s {
	case "I", "1":
		return PhaseI
	case "II", "2":
		return PhaseII
	case "III", "3":
		return PhaseIII
	}
	return ""
}

// ParseProgram maps raw program strings to a Program.
func ParseProgram(s string) Program {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SBIR":
		return ProgramSBIR
	case "STTR":
		return ProgramSTTR
	}
	return ""
}
