package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/hollomancer/sbir-analytics-sub010/internal/db"
	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
)

// PostgresStore implements Store using pgxpool. Source records go through
// COPY-backed bulk upserts; detection output uses plain statements since it
// arrives batch by batch.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS awards (
	award_id        TEXT PRIMARY KEY,
	firm            TEXT NOT NULL,
	uei             TEXT,
	cage            TEXT,
	duns            TEXT,
	agency          TEXT NOT NULL,
	phase           TEXT NOT NULL,
	program         TEXT NOT NULL,
	completion_date TIMESTAMPTZ NOT NULL,
	cet_label       TEXT,
	title           TEXT,
	abstract        TEXT
);

CREATE TABLE IF NOT EXISTS contracts (
	piid             TEXT PRIMARY KEY,
	vendor           TEXT NOT NULL,
	uei              TEXT,
	cage             TEXT,
	duns             TEXT,
	agency           TEXT NOT NULL,
	funding_agency   TEXT,
	start_date       TIMESTAMPTZ NOT NULL,
	obligated_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
	competition      TEXT NOT NULL,
	description      TEXT,
	cet_label        TEXT
);

CREATE TABLE IF NOT EXISTS patents (
	award_id         TEXT NOT NULL,
	assignee         TEXT NOT NULL,
	grant_id         TEXT,
	application_id   TEXT,
	filing_date      TIMESTAMPTZ NOT NULL,
	topic_similarity DOUBLE PRECISION,
	PRIMARY KEY (award_id, assignee, filing_date)
);

CREATE TABLE IF NOT EXISTS detection_runs (
	id          TEXT PRIMARY KEY,
	config_hash TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	report      JSONB,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS transitions (
	run_id      TEXT NOT NULL REFERENCES detection_runs(id),
	award_id    TEXT NOT NULL,
	contract_id TEXT NOT NULL,
	score       DOUBLE PRECISION NOT NULL,
	tier        TEXT NOT NULL,
	record      JSONB NOT NULL,
	detected_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, award_id)
);

CREATE TABLE IF NOT EXISTS evidence_bundles (
	run_id   TEXT NOT NULL REFERENCES detection_runs(id),
	award_id TEXT NOT NULL,
	bundle   JSONB NOT NULL,
	PRIMARY KEY (run_id, award_id)
);

CREATE INDEX IF NOT EXISTS idx_contracts_start_date ON contracts(start_date);
CREATE INDEX IF NOT EXISTS idx_contracts_uei ON contracts(uei);
CREATE INDEX IF NOT EXISTS idx_patents_award_id ON patents(award_id);
CREATE INDEX IF NOT EXISTS idx_transitions_run_id ON transitions(run_id);
CREATE INDEX IF NOT EXISTS idx_transitions_tier ON transitions(tier);
CREATE INDEX IF NOT EXISTS idx_runs_status ON detection_runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

var awardColumns = []string{"award_id", "firm", "uei", "cage", "duns", "agency", "phase", "program", "completion_date", "cet_label", "title", "abstract"}

func (s *PostgresStore) UpsertAwards(ctx context.Context, awards []model.Award) (int64, error) {
	rows := make([][]any, len(awards))
	for i, a := range awards {
		rows[i] = []any{a.ID, a.Firm, a.UEI, a.CAGE, a.DUNS, a.Agency, string(a.Phase), string(a.Program), a.CompletionDate.UTC(), a.CETLabel, a.Title, a.Abstract}
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "awards",
		Columns:      awardColumns,
		ConflictKeys: []string{"award_id"},
	}, rows)
	return n, eris.Wrap(err, "postgres: upsert awards")
}

var contractColumns = []string{"piid", "vendor", "uei", "cage", "duns", "agency", "funding_agency", "start_date", "obligated_amount", "competition", "description", "cet_label"}

func (s *PostgresStore) UpsertContracts(ctx context.Context, contracts []model.FederalContract) (int64, error) {
	rows := make([][]any, len(contracts))
	for i, c := range contracts {
		rows[i] = []any{c.PIID, c.Vendor, c.UEI, c.CAGE, c.DUNS, c.Agency, c.FundingAgency, c.StartDate.UTC(), c.ObligatedAmount, string(c.Competition), c.Description, c.CETLabel}
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "contracts",
		Columns:      contractColumns,
		ConflictKeys: []string{"piid"},
	}, rows)
	return n, eris.Wrap(err, "postgres: upsert contracts")
}

var patentColumns = []string{"award_id", "assignee", "grant_id", "application_id", "filing_date", "topic_similarity"}

func (s *PostgresStore) UpsertPatents(ctx context.Context, patents []model.Patent) (int64, error) {
	rows := make([][]any, len(patents))
	for i, p := range patents {
		rows[i] = []any{p.AwardID, p.Assignee, p.GrantID, p.ApplicationID, p.FilingDate.UTC(), p.TopicSimilarity}
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "patents",
		Columns:      patentColumns,
		ConflictKeys: []string{"award_id", "assignee", "filing_date"},
	}, rows)
	return n, eris.Wrap(err, "postgres: upsert patents")
}

// ApplyCETLabels overlays technology-area labels onto stored awards and
// contracts.
func (s *PostgresStore) ApplyCETLabels(ctx context.Context, labels []model.CETLabel) (int64, error) {
	var total int64
	for i, l := range labels {
		if l.AwardID != "" {
			tag, err := s.pool.Exec(ctx, `UPDATE awards SET cet_label = $1 WHERE award_id = $2`, l.Label, l.AwardID)
			if err != nil {
				return 0, eris.Wrapf(err, "postgres: apply cet labels: row %d", i)
			}
			total += tag.RowsAffected()
		}
		if l.PIID != "" {
			tag, err := s.pool.Exec(ctx, `UPDATE contracts SET cet_label = $1 WHERE piid = $2`, l.Label, l.PIID)
			if err != nil {
				return 0, eris.Wrapf(err, "postgres: apply cet labels: row %d", i)
			}
			total += tag.RowsAffected()
		}
	}
	return total, nil
}

func (s *PostgresStore) LoadAwards(ctx context.Context) ([]model.Award, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT award_id, firm, COALESCE(uei,''), COALESCE(cage,''), COALESCE(duns,''), agency, phase, program, completion_date, COALESCE(cet_label,''), COALESCE(title,''), COALESCE(abstract,'')
		 FROM awards ORDER BY award_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load awards")
	}
	defer rows.Close()

	var awards []model.Award
	for rows.Next() {
		var a model.Award
		var phase, program string
		if err := rows.Scan(&a.ID, &a.Firm, &a.UEI, &a.CAGE, &a.DUNS, &a.Agency, &phase, &program, &a.CompletionDate, &a.CETLabel, &a.Title, &a.Abstract); err != nil {
			return nil, eris.Wrap(err, "postgres: scan award")
		}
		a.Phase = model.AwardPhase(phase)
		a.Program = model.Program(program)
		awards = append(awards, a)
	}
	return awards, eris.Wrap(rows.Err(), "postgres: load awards iterate")
}

func (s *PostgresStore) LoadContracts(ctx context.Context) ([]model.FederalContract, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT piid, vendor, COALESCE(uei,''), COALESCE(cage,''), COALESCE(duns,''), agency, COALESCE(funding_agency,''), start_date, obligated_amount, competition, COALESCE(description,''), COALESCE(cet_label,'')
		 FROM contracts ORDER BY piid`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load contracts")
	}
	defer rows.Close()

	var contracts []model.FederalContract
	for rows.Next() {
		var c model.FederalContract
		var competition string
		if err := rows.Scan(&c.PIID, &c.Vendor, &c.UEI, &c.CAGE, &c.DUNS, &c.Agency, &c.FundingAgency, &c.StartDate, &c.ObligatedAmount, &competition, &c.Description, &c.CETLabel); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contract")
		}
		c.Competition = model.CompetitionType(competition)
		contracts = append(contracts, c)
	}
	return contracts, eris.Wrap(rows.Err(), "postgres: load contracts iterate")
}

func (s *PostgresStore) LoadPatents(ctx context.Context) (map[string][]model.Patent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT award_id, assignee, COALESCE(grant_id,''), COALESCE(application_id,''), filing_date, topic_similarity
		 FROM patents ORDER BY award_id, filing_date`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load patents")
	}
	defer rows.Close()

	byAward := make(map[string][]model.Patent)
	for rows.Next() {
		var p model.Patent
		if err := rows.Scan(&p.AwardID, &p.Assignee, &p.GrantID, &p.ApplicationID, &p.FilingDate, &p.TopicSimilarity); err != nil {
			return nil, eris.Wrap(err, "postgres: scan patent")
		}
		byAward[p.AwardID] = append(byAward[p.AwardID], p)
	}
	return byAward, eris.Wrap(rows.Err(), "postgres: load patents iterate")
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *model.DetectionRun) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO detection_runs (id, config_hash, status, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, run.ConfigHash, string(run.Status), run.StartedAt,
	)
	return eris.Wrapf(err, "postgres: insert run %s", run.ID)
}

func (s *PostgresStore) FinishRun(ctx context.Context, run *model.DetectionRun) error {
	reportJSON, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run report")
	}
	var finishedAt any
	if run.FinishedAt != nil {
		finishedAt = run.FinishedAt.UTC()
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE detection_runs SET status = $1, report = $2, finished_at = $3 WHERE id = $4`,
		string(run.Status), reportJSON, finishedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", run.ID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.DetectionRun, error) {
	var id, configHash, status string
	var reportJSON []byte
	var startedAt time.Time
	var finishedAt *time.Time

	err := s.pool.QueryRow(ctx,
		`SELECT id, config_hash, status, report, started_at, finished_at FROM detection_runs WHERE id = $1`,
		runID,
	).Scan(&id, &configHash, &status, &reportJSON, &startedAt, &finishedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	r := &model.DetectionRun{}
	if len(reportJSON) > 0 {
		if err := json.Unmarshal(reportJSON, r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run report")
		}
	}
	r.ID = id
	r.ConfigHash = configHash
	r.Status = model.RunStatus(status)
	r.StartedAt = startedAt
	r.FinishedAt = finishedAt
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.DetectionRun, error) {
	query := `SELECT id, config_hash, status, report, started_at, finished_at FROM detection_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.DetectionRun
	for rows.Next() {
		r, err := scanRunRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanRunRow(rows pgx.Rows) (*model.DetectionRun, error) {
	var id, configHash, status string
	var reportJSON []byte
	var startedAt time.Time
	var finishedAt *time.Time

	if err := rows.Scan(&id, &configHash, &status, &reportJSON, &startedAt, &finishedAt); err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	r := &model.DetectionRun{}
	if len(reportJSON) > 0 {
		if err := json.Unmarshal(reportJSON, r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run report")
		}
	}
	r.ID = id
	r.ConfigHash = configHash
	r.Status = model.RunStatus(status)
	r.StartedAt = startedAt
	r.FinishedAt = finishedAt
	return r, nil
}

func (s *PostgresStore) WriteTransition(ctx context.Context, t *model.Transition) error {
	recordJSON, err := json.Marshal(t)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal transition")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO transitions (run_id, award_id, contract_id, score, tier, record, detected_at) VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (run_id, award_id) DO UPDATE SET
			contract_id = EXCLUDED.contract_id, score = EXCLUDED.score,
			tier = EXCLUDED.tier, record = EXCLUDED.record, detected_at = EXCLUDED.detected_at`,
		t.RunID, t.AwardID, t.ContractID, t.Score, string(t.Tier), recordJSON, t.DetectedAt,
	)
	return eris.Wrapf(err, "postgres: write transition for award %s", t.AwardID)
}

func (s *PostgresStore) WriteEvidence(ctx context.Context, b *model.EvidenceBundle) error {
	bundleJSON, err := json.Marshal(b)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal evidence bundle")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO evidence_bundles (run_id, award_id, bundle) VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, award_id) DO UPDATE SET bundle = EXCLUDED.bundle`,
		b.RunID, b.AwardID, bundleJSON,
	)
	return eris.Wrapf(err, "postgres: write evidence for award %s", b.AwardID)
}

func (s *PostgresStore) ListTransitions(ctx context.Context, runID string) ([]model.Transition, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT record FROM transitions WHERE run_id = $1 ORDER BY award_id`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list transitions for run %s", runID)
	}
	defer rows.Close()

	var out []model.Transition
	for rows.Next() {
		var recordJSON []byte
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan transition")
		}
		var t model.Transition
		if err := json.Unmarshal(recordJSON, &t); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal transition")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list transitions iterate")
}

func (s *PostgresStore) GetEvidence(ctx context.Context, runID, awardID string) (*model.EvidenceBundle, error) {
	var bundleJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT bundle FROM evidence_bundles WHERE run_id = $1 AND award_id = $2`, runID, awardID,
	).Scan(&bundleJSON)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get evidence")
	}
	var b model.EvidenceBundle
	if err := json.Unmarshal(bundleJSON, &b); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal evidence bundle")
	}
	return &b, nil
}
