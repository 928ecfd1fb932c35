package store

import (
	"context"

	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
)

// RunFilter specifies criteria for listing detection runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines persistence for the detection pipeline: source records in,
// transitions and evidence out. WriteTransition/WriteEvidence match the
// detector's sink, so a Store can be handed to the runner directly.
type Store interface {
	// Source data
	UpsertAwards(ctx context.Context, awards []model.Award) (int64, error)
	UpsertContracts(ctx context.Context, contracts []model.FederalContract) (int64, error)
	UpsertPatents(ctx context.Context, patents []model.Patent) (int64, error)
	ApplyCETLabels(ctx context.Context, labels []model.CETLabel) (int64, error)
	LoadAwards(ctx context.Context) ([]model.Award, error)
	LoadContracts(ctx context.Context) ([]model.FederalContract, error)
	LoadPatents(ctx context.Context) (map[string][]model.Patent, error)

	// Runs
	CreateRun(ctx context.Context, run *model.DetectionRun) error
	FinishRun(ctx context.Context, run *model.DetectionRun) error
	GetRun(ctx context.Context, runID string) (*model.DetectionRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.DetectionRun, error)

	// Detection output
	WriteTransition(ctx context.Context, t *model.Transition) error
	WriteEvidence(ctx context.Context, b *model.EvidenceBundle) error
	ListTransitions(ctx context.Context, runID string) ([]model.Transition, error)
	GetEvidence(ctx context.Context, runID, awardID string) (*model.EvidenceBundle, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
