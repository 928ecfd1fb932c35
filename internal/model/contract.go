package model

import (
	"strings"
	"time"
)

// CompetitionType categorizes how a federal contract was competed.
type CompetitionType string

const (
	CompetitionSoleSource CompetitionType = "sole_source"
	CompetitionLimited    CompetitionType = "limited"
	CompetitionFullOpen   CompetitionType = "full_open"
)

// FederalContract is a follow-on federal contract record. Consumed read-only.
type FederalContract struct {
	PIID            string          `json:"piid"`
	Vendor          string          `json:"vendor"`
	UEI             string          `json:"uei,omitempty"`
	CAGE            string          `json:"cage,omitempty"`
	DUNS            string          `json:"duns,omitempty"`
	Agency          string          `json:"agency"`
	FundingAgency   string          `json:"funding_agency,omitempty"`
	StartDate       time.Time       `json:"start_date"`
	ObligatedAmount float64         `json:"obligated_amount"`
	Competition     CompetitionType `json:"competition"`
	Description     string          `json:"description,omitempty"`
	CETLabel        string          `json:"cet_label,omitempty"`
}

// ParseCompetitionType maps the free-form "extent competed" strings found in
// procurement exports to a CompetitionType. Unknown values map to full-and-open,
// the weakest continuity assumption.
func ParseCompetitionType(s string) CompetitionType {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case v == "":
		return CompetitionFullOpen
	case strings.Contains(v, "SOLE"), strings.Contains(v, "ONLY ONE SOURCE"), strings.Contains(v, "NOT COMPETED"):
		return CompetitionSoleSource
	case strings.Contains(v, "LIMITED"), strings.Contains(v, "SET-ASIDE"), strings.Contains(v, "SET ASIDE"), strings.Contains(v, "EXCLUSION"):
		return CompetitionLimited
	default:
		return CompetitionFullOpen
	}
}
