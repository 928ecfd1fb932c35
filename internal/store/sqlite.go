package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is the default
// backend for local single-machine runs; source records live in relational
// columns, signals and evidence in JSON columns.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS awards (
	award_id        TEXT PRIMARY KEY,
	firm            TEXT NOT NULL,
	uei             TEXT,
	cage            TEXT,
	duns            TEXT,
	agency          TEXT NOT NULL,
	phase           TEXT NOT NULL,
	program         TEXT NOT NULL,
	completion_date DATETIME NOT NULL,
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
	start_date       DATETIME NOT NULL,
	obligated_amount REAL NOT NULL DEFAULT 0,
	competition      TEXT NOT NULL,
	description      TEXT,
	cet_label        TEXT
);

CREATE TABLE IF NOT EXISTS patents (
	award_id         TEXT NOT NULL,
	assignee         TEXT NOT NULL,
	grant_id         TEXT,
	application_id   TEXT,
	filing_date      DATETIME NOT NULL,
	topic_similarity REAL,
	PRIMARY KEY (award_id, assignee, filing_date)
);

CREATE TABLE IF NOT EXISTS detection_runs (
	id          TEXT PRIMARY KEY,
	config_hash TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	report      TEXT,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS transitions (
	run_id      TEXT NOT NULL REFERENCES detection_runs(id),
	award_id    TEXT NOT NULL,
	contract_id TEXT NOT NULL,
	score       REAL NOT NULL,
	tier        TEXT NOT NULL,
	record      TEXT NOT NULL,
	detected_at DATETIME NOT NULL,
	PRIMARY KEY (run_id, award_id)
);

CREATE TABLE IF NOT EXISTS evidence_bundles (
	run_id   TEXT NOT NULL REFERENCES detection_runs(id),
	award_id TEXT NOT NULL,
	bundle   TEXT NOT NULL,
	PRIMARY KEY (run_id, award_id)
);

CREATE INDEX IF NOT EXISTS idx_contracts_start_date ON contracts(start_date);
CREATE INDEX IF NOT EXISTS idx_contracts_uei ON contracts(uei);
CREATE INDEX IF NOT EXISTS idx_patents_award_id ON patents(award_id);
CREATE INDEX IF NOT EXISTS idx_transitions_run_id ON transitions(run_id);
CREATE INDEX IF NOT EXISTS idx_transitions_tier ON transitions(tier);
CREATE INDEX IF NOT EXISTS idx_runs_status ON detection_runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertAwards(ctx context.Context, awards []model.Award) (int64, error) {
	return s.upsertBatch(ctx, "sqlite: upsert awards",
		`INSERT INTO awards (award_id, firm, uei, cage, duns, agency, phase, program, completion_date, cet_label, title, abstract)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (award_id) DO UPDATE SET
			firm = excluded.firm, uei = excluded.uei, cage = excluded.cage,
			duns = excluded.duns, agency = excluded.agency, phase = excluded.phase,
			program = excluded.program, completion_date = excluded.completion_date,
			cet_label = excluded.cet_label, title = excluded.title, abstract = excluded.abstract`,
		len(awards), func(i int) []any {
			a := awards[i]
			return []any{a.ID, a.Firm, a.UEI, a.CAGE, a.DUNS, a.Agency, string(a.Phase), string(a.Program), a.CompletionDate.UTC(), a.CETLabel, a.Title, a.Abstract}
		})
}

func (s *SQLiteStore) UpsertContracts(ctx context.Context, contracts []model.FederalContract) (int64, error) {
	return s.upsertBatch(ctx, "sqlite: upsert contracts",
		`INSERT INTO contracts (piid, vendor, uei, cage, duns, agency, funding_agency, start_date, obligated_amount, competition, description, cet_label)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (piid) DO UPDATE SET
			vendor = excluded.vendor, uei = excluded.uei, cage = excluded.cage,
			duns = excluded.duns, agency = excluded.agency, funding_agency = excluded.funding_agency,
			start_date = excluded.start_date, obligated_amount = excluded.obligated_amount,
			competition = excluded.competition, description = excluded.description,
			cet_label = excluded.cet_label`,
		len(contracts), func(i int) []any {
			c := contracts[i]
			return []any{c.PIID, c.Vendor, c.UEI, c.CAGE, c.DUNS, c.Agency, c.FundingAgency, c.StartDate.UTC(), c.ObligatedAmount, string(c.Competition), c.Description, c.CETLabel}
		})
}

func (s *SQLiteStore) UpsertPatents(ctx context.Context, patents []model.Patent) (int64, error) {
	return s.upsertBatch(ctx, "sqlite: upsert patents",
		`INSERT INTO patents (award_id, assignee, grant_id, application_id, filing_date, topic_similarity)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (award_id, assignee, filing_date) DO UPDATE SET
			grant_id = excluded.grant_id, application_id = excluded.application_id,
			topic_similarity = excluded.topic_similarity`,
		len(patents), func(i int) []any {
			p := patents[i]
			return []any{p.AwardID, p.Assignee, p.GrantID, p.ApplicationID, p.FilingDate.UTC(), p.TopicSimilarity}
		})
}

// ApplyCETLabels overlays technology-area labels onto stored awards and
// contracts. Labels keyed to records that have not been imported yet match
// nothing and count zero.
func (s *SQLiteStore) ApplyCETLabels(ctx context.Context, labels []model.CETLabel) (int64, error) {
	if len(labels) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: apply cet labels: begin tx")
	}
	defer tx.Rollback()

	awardStmt, err := tx.PrepareContext(ctx, `UPDATE awards SET cet_label = ? WHERE award_id = ?`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: apply cet labels: prepare awards")
	}
	defer awardStmt.Close()

	contractStmt, err := tx.PrepareContext(ctx, `UPDATE contracts SET cet_label = ? WHERE piid = ?`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: apply cet labels: prepare contracts")
	}
	defer contractStmt.Close()

	var total int64
	for i, l := range labels {
		if l.AwardID != "" {
			res, err := awardStmt.ExecContext(ctx, l.Label, l.AwardID)
			if err != nil {
				return 0, eris.Wrapf(err, "sqlite: apply cet labels: row %d", i)
			}
			n, _ := res.RowsAffected()
			total += n
		}
		if l.PIID != "" {
			res, err := contractStmt.ExecContext(ctx, l.Label, l.PIID)
			if err != nil {
				return 0, eris.Wrapf(err, "sqlite: apply cet labels: row %d", i)
			}
			n, _ := res.RowsAffected()
			total += n
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: apply cet labels: commit")
	}
	return total, nil
}

// upsertBatch runs one prepared statement per row inside a single transaction.
func (s *SQLiteStore) upsertBatch(ctx context.Context, op, query string, n int, row func(i int) []any) (int64, error) {
	if n == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "%s: begin tx", op)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, eris.Wrapf(err, "%s: prepare", op)
	}
	defer stmt.Close()

	var total int64
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			return 0, eris.Wrapf(err, "%s: row %d", op, i)
		}
		total++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "%s: commit", op)
	}
	return total, nil
}

func (s *SQLiteStore) LoadAwards(ctx context.Context) ([]model.Award, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT award_id, firm, COALESCE(uei,''), COALESCE(cage,''), COALESCE(duns,''), agency, phase, program, completion_date, COALESCE(cet_label,''), COALESCE(title,''), COALESCE(abstract,'')
		 FROM awards ORDER BY award_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load awards")
	}
	defer rows.Close()

	var awards []model.Award
	for rows.Next() {
		var a model.Award
		var phase, program string
		if err := rows.Scan(&a.ID, &a.Firm, &a.UEI, &a.CAGE, &a.DUNS, &a.Agency, &phase, &program, &a.CompletionDate, &a.CETLabel, &a.Title, &a.Abstract); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan award")
		}
		a.Phase = model.AwardPhase(phase)
		a.Program = model.Program(program)
		awards = append(awards, a)
	}
	return awards, eris.Wrap(rows.Err(), "sqlite: load awards iterate")
}

func (s *SQLiteStore) LoadContracts(ctx context.Context) ([]model.FederalContract, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT piid, vendor, COALESCE(uei,''), COALESCE(cage,''), COALESCE(duns,''), agency, COALESCE(funding_agency,''), start_date, obligated_amount, competition, COALESCE(description,''), COALESCE(cet_label,'')
		 FROM contracts ORDER BY piid`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load contracts")
	}
	defer rows.Close()

	var contracts []model.FederalContract
	for rows.Next() {
		var c model.FederalContract
		var competition string
		if err := rows.Scan(&c.PIID, &c.Vendor, &c.UEI, &c.CAGE, &c.DUNS, &c.Agency, &c.FundingAgency, &c.StartDate, &c.ObligatedAmount, &competition, &c.Description, &c.CETLabel); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contract")
		}
		c.Competition = model.CompetitionType(competition)
		contracts = append(contracts, c)
	}
	return contracts, eris.Wrap(rows.Err(), "sqlite: load contracts iterate")
}

func (s *SQLiteStore) LoadPatents(ctx context.Context) (map[string][]model.Patent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT award_id, assignee, COALESCE(grant_id,''), COALESCE(application_id,''), filing_date, topic_similarity
		 FROM patents ORDER BY award_id, filing_date`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load patents")
	}
	defer rows.Close()

	byAward := make(map[string][]model.Patent)
	for rows.Next() {
		var p model.Patent
		if err := rows.Scan(&p.AwardID, &p.Assignee, &p.GrantID, &p.ApplicationID, &p.FilingDate, &p.TopicSimilarity); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan patent")
		}
		byAward[p.AwardID] = append(byAward[p.AwardID], p)
	}
	return byAward, eris.Wrap(rows.Err(), "sqlite: load patents iterate")
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.DetectionRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO detection_runs (id, config_hash, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.ConfigHash, string(run.Status), run.StartedAt,
	)
	return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *model.DetectionRun) error {
	reportJSON, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run report")
	}
	var finishedAt any
	if run.FinishedAt != nil {
		finishedAt = run.FinishedAt.UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE detection_runs SET status = ?, report = ?, finished_at = ? WHERE id = ?`,
		string(run.Status), string(reportJSON), finishedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", run.ID)
	}
	return checkRowsAffected(res, "run", run.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.DetectionRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, config_hash, status, report, started_at, finished_at FROM detection_runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.DetectionRun, error) {
	query := `SELECT id, config_hash, status, report, started_at, finished_at FROM detection_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.DetectionRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) WriteTransition(ctx context.Context, t *model.Transition) error {
	recordJSON, err := json.Marshal(t)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal transition")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transitions (run_id, award_id, contract_id, score, tier, record, detected_at) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, award_id) DO UPDATE SET
			contract_id = excluded.contract_id, score = excluded.score,
			tier = excluded.tier, record = excluded.record, detected_at = excluded.detected_at`,
		t.RunID, t.AwardID, t.ContractID, t.Score, string(t.Tier), string(recordJSON), t.DetectedAt,
	)
	return eris.Wrapf(err, "sqlite: write transition for award %s", t.AwardID)
}

func (s *SQLiteStore) WriteEvidence(ctx context.Context, b *model.EvidenceBundle) error {
	bundleJSON, err := json.Marshal(b)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal evidence bundle")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evidence_bundles (run_id, award_id, bundle) VALUES (?, ?, ?)
		 ON CONFLICT (run_id, award_id) DO UPDATE SET bundle = excluded.bundle`,
		b.RunID, b.AwardID, string(bundleJSON),
	)
	return eris.Wrapf(err, "sqlite: write evidence for award %s", b.AwardID)
}

func (s *SQLiteStore) ListTransitions(ctx context.Context, runID string) ([]model.Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM transitions WHERE run_id = ? ORDER BY award_id`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list transitions for run %s", runID)
	}
	defer rows.Close()

	var out []model.Transition
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan transition")
		}
		var t model.Transition
		if err := json.Unmarshal([]byte(recordJSON), &t); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal transition")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list transitions iterate")
}

func (s *SQLiteStore) GetEvidence(ctx context.Context, runID, awardID string) (*model.EvidenceBundle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT bundle FROM evidence_bundles WHERE run_id = ? AND award_id = ?`, runID, awardID)

	var bundleJSON string
	err := row.Scan(&bundleJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get evidence")
	}
	var b model.EvidenceBundle
	if err := json.Unmarshal([]byte(bundleJSON), &b); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal evidence bundle")
	}
	return &b, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.DetectionRun, error) {
	var id, configHash, status string
	var reportJSON sql.NullString
	var startedAt time.Time
	var finishedAt sql.NullTime

	err := row.Scan(&id, &configHash, &status, &reportJSON, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	r := &model.DetectionRun{}
	if reportJSON.Valid && reportJSON.String != "" {
		if err := json.Unmarshal([]byte(reportJSON.String), r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run report")
		}
	}
	// Columns win over the serialized report for identity and lifecycle.
	r.ID = id
	r.ConfigHash = configHash
	r.Status = model.RunStatus(status)
	r.StartedAt = startedAt
	if finishedAt.Valid {
		t := finishedAt.Time
		r.FinishedAt = &t
	}
	return r, nil
}
