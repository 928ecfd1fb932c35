package model

import "time"

// RunStatus is the lifecycle state of a detection run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// DetectionRun records one batch detection run: counts, quality metrics, and
// the hash of the configuration that produced it, so output can be tied back
// to exact settings.
type DetectionRun struct {
	ID             string     `json:"id"`
	ConfigHash     string     `json:"config_hash"`
	Status         RunStatus  `json:"status"`
	TotalAwards    int        `json:"total_awards"`
	Processed      int        `json:"processed"`
	Emitted        int        `json:"emitted"`
	NoCandidate    int        `json:"no_candidate"`
	Failed         int        `json:"failed"`
	Matched        int        `json:"matched"`
	CompletionRate float64    `json:"completion_rate"`
	MatchRate      float64    `json:"match_rate"`
	GatePassed     bool       `json:"gate_passed"`
	GateFailures   []string   `json:"gate_failures,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}
