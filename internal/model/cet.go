package model

// CETLabel assigns a Critical and Emerging Technology area to an award or a
// contract. Labels arrive as a standalone feed keyed by award id or contract
// PIID and are overlaid onto previously imported records; at least one key
// must be set.
type CETLabel struct {
	AwardID string `json:"award_id,omitempty"`
	PIID    string `json:"piid,omitempty"`
	Label   string `json:"label"`
}
