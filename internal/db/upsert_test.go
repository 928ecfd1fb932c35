package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"award_id", "firm", "agency"}
	rows := [][]any{
		{"A1", "Acme Robotics LLC", "DOD"},
		{"A2", "Zenith Pharmaceuticals Inc", "HHS"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_awards"`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_awards"}, cols).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "awards" .+ ON CONFLICT .+ DO UPDATE SET "firm" = EXCLUDED."firm", "agency" = EXCLUDED."agency"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "awards",
		Columns:      cols,
		ConflictKeys: []string{"award_id"},
	}, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertEmptyRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "awards",
		Columns:      []string{"award_id"},
		ConflictKeys: []string{"award_id"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.NoError(t, mock.ExpectationsWereMet(), "no rows means no SQL at all")
}

func TestBulkUpsertConfigValidation(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := [][]any{{"A1"}}

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{Table: "awards", ConflictKeys: []string{"award_id"}}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns")

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{Table: "awards", Columns: []string{"award_id"}}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys")
}

func TestBulkUpsertCopyFailureRollsBack(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"award_id", "firm"}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_awards"}, cols).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "awards",
		Columns:      cols,
		ConflictKeys: []string{"award_id"},
	}, [][]any{{"A1", "Acme"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"piid", "vendor"}
	mock.ExpectCopyFrom(pgx.Identifier{"contracts"}, cols).WillReturnResult(3)

	n, err := CopyFrom(context.Background(), mock, "contracts", cols, [][]any{
		{"C1", "Acme"}, {"C2", "Zenith"}, {"C3", "Orbit"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFromEmpty(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	n, err := CopyFrom(context.Background(), mock, "contracts", []string{"piid"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestSanitizeTable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"awards"`, sanitizeTable("awards"))
	assert.Equal(t, `"sbir"."awards"`, sanitizeTable("sbir.awards"))
}
