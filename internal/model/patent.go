package model

import "time"

// Patent is a pre-fetched patent record keyed to a specific award. The
// topic-similarity score against the award abstract is precomputed upstream.
type Patent struct {
	AwardID         string    `json:"award_id"`
	Assignee        string    `json:"assignee"`
	GrantID         string    `json:"grant_id,omitempty"`
	ApplicationID   string    `json:"application_id,omitempty"`
	FilingDate      time.Time `json:"filing_date"`
	TopicSimilarity *float64  `json:"topic_similarity,omitempty"`
}
