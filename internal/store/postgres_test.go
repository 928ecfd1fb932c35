package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgresCreateRun(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	run := testRun()
	mock.ExpectExec(`INSERT INTO detection_runs`).
		WithArgs(run.ID, run.ConfigHash, string(run.Status), run.StartedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFinishRun(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	run := testRun()
	run.Status = model.RunStatusComplete
	run.Processed = 10
	finished := utc(2026, 2, 2)
	run.FinishedAt = &finished

	mock.ExpectExec(`UPDATE detection_runs SET`).
		WithArgs(string(run.Status), pgxmock.AnyArg(), pgxmock.AnyArg(), run.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.FinishRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFinishRunNotFound(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	run := testRun()
	mock.ExpectExec(`UPDATE detection_runs SET`).
		WithArgs(string(run.Status), pgxmock.AnyArg(), pgxmock.AnyArg(), run.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestPostgresGetRun(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	report := &model.DetectionRun{TotalAwards: 50, Emitted: 40, Matched: 40, GatePassed: true}
	reportJSON, err := json.Marshal(report)
	require.NoError(t, err)

	started := utc(2026, 2, 1)
	mock.ExpectQuery(`SELECT id, config_hash, status, report, started_at, finished_at FROM detection_runs`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "config_hash", "status", "report", "started_at", "finished_at"}).
			AddRow("run-1", "abc123", "complete", reportJSON, started, (*time.Time)(nil)))

	got, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, 50, got.TotalAwards, "counters come from the report column")
	assert.True(t, got.GatePassed)
	assert.True(t, got.StartedAt.Equal(started), "identity columns win over the report")
}

func TestPostgresWriteTransition(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	tr := &model.Transition{
		RunID:      "run-1",
		AwardID:    "A1",
		ContractID: "C1",
		Score:      0.85,
		Tier:       model.TierHigh,
		DetectedAt: utc(2026, 2, 1),
	}
	mock.ExpectExec(`INSERT INTO transitions`).
		WithArgs(tr.RunID, tr.AwardID, tr.ContractID, tr.Score, string(tr.Tier), pgxmock.AnyArg(), tr.DetectedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.WriteTransition(context.Background(), tr))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListTransitions(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	tr := model.Transition{RunID: "run-1", AwardID: "A1", ContractID: "C1", Score: 0.85, Tier: model.TierHigh, DetectedAt: utc(2026, 2, 1)}
	recordJSON, err := json.Marshal(tr)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT record FROM transitions`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"record"}).AddRow(recordJSON))

	got, err := s.ListTransitions(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, tr, got[0])
}

func TestPostgresGetEvidenceMissing(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT bundle FROM evidence_bundles`).
		WithArgs("run-1", "A-NONE").
		WillReturnRows(pgxmock.NewRows([]string{"bundle"}))

	ev, err := s.GetEvidence(context.Background(), "run-1", "A-NONE")
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestPostgresApplyCETLabels(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE awards SET cet_label`).
		WithArgs("Artificial Intelligence", "A1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE contracts SET cet_label`).
		WithArgs("Quantum Information", "C1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE awards SET cet_label`).
		WithArgs("Hypersonics", "A-GONE").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	n, err := s.ApplyCETLabels(context.Background(), []model.CETLabel{
		{AwardID: "A1", Label: "Artificial Intelligence"},
		{PIID: "C1", Label: "Quantum Information"},
		{AwardID: "A-GONE", Label: "Hypersonics"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "unmatched keys update nothing")
	assert.NoError(t, mock.ExpectationsWereMet())
}
