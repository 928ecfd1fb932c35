// Package detect drives the per-award transition pipeline: candidate
// selection, vendor resolution, signal extraction, scoring, classification,
// and evidence generation, run as a batch-oriented, non-interactive process.
package detect

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hollomancer/sbir-analytics-sub010/internal/config"
	"github.com/hollomancer/sbir-analytics-sub010/internal/evidence"
	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
	"github.com/hollomancer/sbir-analytics-sub010/internal/resolve"
	"github.com/hollomancer/sbir-analytics-sub010/internal/scoring"
	"github.com/hollomancer/sbir-analytics-sub010/internal/signal"
)

// Outcome is the terminal state of one award's pipeline pass.
type Outcome string

const (
	// OutcomeEmitted: a transition was produced (with or without evidence).
	OutcomeEmitted Outcome = "emitted"
	// OutcomeNoCandidate: no contract survived the timing filter and vendor
	// resolution. A normal terminal state, not a failure.
	OutcomeNoCandidate Outcome = "no_candidate"
	// OutcomeFailed: the award record was malformed or every candidate pair
	// failed scoring. Recorded and skipped; never aborts the batch.
	OutcomeFailed Outcome = "failed"
)

// AwardResult is the outcome of processing a single award.
type AwardResult struct {
	AwardID    string
	Outcome    Outcome
	Transition *model.Transition
	Evidence   *model.EvidenceBundle
	Err        string
}

// Detector scores one award at a time against a shared read-only contract
// index. Safe for concurrent use: all per-call state is local.
type Detector struct {
	cfg      config.DetectConfig
	index    *resolve.ContractIndex
	resolver *resolve.Resolver
	sim      resolve.Similarity
	builder  *evidence.Builder
}

// NewDetector wires a detector over a prebuilt contract index. The similarity
// capability is injected so the fuzzy algorithm can be swapped.
func NewDetector(cfg config.DetectConfig, index *resolve.ContractIndex, sim resolve.Similarity) *Detector {
	threshold := cfg.VendorMatching.FuzzyThreshold
	if cfg.VendorMatching.UseSecondaryThreshold {
		threshold = cfg.VendorMatching.FuzzySecondaryThreshold
	}
	return &Detector{
		cfg:      cfg,
		index:    index,
		resolver: resolve.NewResolver(sim, cfg.VendorMatching.PriorityOrder, threshold),
		sim:      sim,
		builder:  evidence.NewBuilder(cfg.Evidence.ScoreThreshold, cfg.Scoring.Weights),
	}
}

// DetectOne runs the full pipeline for one award. runID and detectedAt are
// supplied by the batch runner so every result in a run shares the same
// timestamp and the scoring path stays free of wall-clock reads.
func (d *Detector) DetectOne(award *model.Award, feeds signal.Feeds, runID string, detectedAt time.Time) AwardResult {
	if err := validateAward(award); err != nil {
		return AwardResult{AwardID: award.ID, Outcome: OutcomeFailed, Err: err.Error()}
	}

	// Cheap filters first: timing window and agency bound the pool before
	// any fuzzy matching happens.
	from, to := resolve.WindowBounds(award.CompletionDate, d.cfg.TimingWindow.MinMonths, d.cfg.TimingWindow.MaxMonths)
	pool := d.index.Candidates(award.Agency, from, to, d.cfg.CandidatePool.RestrictAgency)
	if len(pool) == 0 {
		return AwardResult{AwardID: award.ID, Outcome: OutcomeNoCandidate}
	}

	matches := d.resolver.ResolveAll(award, pool)
	if len(matches) == 0 {
		return AwardResult{AwardID: award.ID, Outcome: OutcomeNoCandidate}
	}

	// Score every surviving candidate and retain the best.
	var best *scoredPair
	var lastErr string
	for _, m := range matches {
		contract := m.Candidate.Contract
		sigs, patentEv := signal.ExtractAll(award, contract, feeds, d.sim, d.cfg.Scoring, d.cfg.TimingWindow)
		res, err := scoring.Compute(sigs, d.cfg.Scoring, d.cfg.Confidence)
		if err != nil {
			lastErr = err.Error()
			zap.L().Warn("detect: candidate pair failed scoring",
				zap.String("award_id", award.ID),
				zap.String("contract_id", contract.PIID),
				zap.Error(err),
			)
			continue
		}
		s := scoredPair{match: m, sigs: sigs, patent: patentEv, result: res}
		if best == nil || betterScored(&s, best, award.CompletionDate) {
			best = &s
		}
	}
	if best == nil {
		return AwardResult{AwardID: award.ID, Outcome: OutcomeFailed, Err: lastErr}
	}

	contract := best.match.Candidate.Contract
	t := &model.Transition{
		RunID:      runID,
		AwardID:    award.ID,
		ContractID: contract.PIID,
		Score:      best.result.Score,
		Tier:       best.result.Tier,
		Match:      best.match.VendorMatch(),
		Signals:    best.sigs,
		DetectedAt: detectedAt,
	}

	bundleStart := time.Now()
	bundle, err := d.builder.Build(t, contract, best.patent)
	if err != nil {
		// An invalid bundle for an above-threshold score is an audit gap:
		// fail the award rather than silently omitting evidence.
		return AwardResult{AwardID: award.ID, Outcome: OutcomeFailed, Err: err.Error()}
	}
	if elapsed := time.Since(bundleStart); elapsed > 100*time.Millisecond {
		zap.L().Warn("detect: evidence build exceeded time target",
			zap.String("award_id", award.ID),
			zap.Duration("elapsed", elapsed),
		)
	}
	t.HasEvidence = bundle != nil

	return AwardResult{AwardID: award.ID, Outcome: OutcomeEmitted, Transition: t, Evidence: bundle}
}

// scoredPair is one fully scored (award, contract) candidate.
type scoredPair struct {
	match  resolve.Match
	sigs   model.Signals
	patent *model.PatentEvidence
	result scoring.Result
}

// betterScored prefers the higher composite score, then the contract start
// closest to award completion, then the smaller contract id: the same
// deterministic tie-break order as vendor resolution.
func betterScored(a, b *scoredPair, completion time.Time) bool {
	if a.result.Score != b.result.Score {
		return a.result.Score > b.result.Score
	}
	da := absDuration(a.match.Candidate.Contract.StartDate.Sub(completion))
	db := absDuration(b.match.Candidate.Contract.StartDate.Sub(completion))
	if da != db {
		return da < db
	}
	return a.match.Candidate.Contract.PIID < b.match.Candidate.Contract.PIID
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// validateAward checks the fields the pipeline cannot proceed without.
// Malformed records are recoverable per-record errors: logged, counted, and
// skipped without aborting the batch.
func validateAward(a *model.Award) error {
	if a.ID == "" {
		return errMissingField("award_id")
	}
	if a.CompletionDate.IsZero() {
		return errMissingField("completion_date")
	}
	if a.Firm == "" && a.UEI == "" && a.CAGE == "" && a.DUNS == "" {
		return errMissingField("recipient identity")
	}
	return nil
}

func errMissingField(field string) error {
	return eris.Errorf("malformed award record: missing %s", field)
}
