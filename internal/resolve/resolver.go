package resolve

import (
	"time"

	"go.uber.org/zap"

	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
)

// exactMatchConfidence is assigned to identifier matches: near-certain but
// below 1.0 to leave room for downstream override and audit.
const exactMatchConfidence = 0.99

// Match is one resolved (award, contract) pairing with the method and
// confidence that produced it.
type Match struct {
	Candidate  Candidate
	Method     model.MatchMethod
	Confidence float64
}

// VendorMatch converts the match into its wire form.
func (m Match) VendorMatch() model.VendorMatch {
	return model.VendorMatch{
		ContractID: m.Candidate.Contract.PIID,
		Method:     m.Method,
		Confidence: m.Confidence,
	}
}

// Resolver resolves an award recipient against a contract pool using the
// configured identifier cascade with a fuzzy-name fallback. Each stage is
// tried only when every prior stage produced no candidate.
type Resolver struct {
	sim       Similarity
	priority  []string
	threshold float64
}

// NewResolver creates a resolver. priority is the ordered cascade (stage
// names "uei", "cage", "duns", "fuzzy_name"); threshold is the minimum
// fuzzy-name similarity to accept.
func NewResolver(sim Similarity, priority []string, threshold float64) *Resolver {
	return &Resolver{sim: sim, priority: priority, threshold: threshold}
}

// ResolveAll returns every contract matched at the first cascade stage that
// produced any match, in pool order. An empty result is the expected
// "unresolved" outcome, not an error.
func (r *Resolver) ResolveAll(award *model.Award, pool []Candidate) []Match {
	if len(pool) == 0 {
		return nil
	}

	uei := NormalizeIdentifier(award.UEI)
	cage := NormalizeIdentifier(award.CAGE)
	duns := NormalizeIdentifier(award.DUNS)

	for _, stage := range r.priority {
		var matches []Match
		switch stage {
		case "uei":
			matches = exactStage(pool, uei, model.MatchUEI, func(c Candidate) string { return c.uei })
		case "cage":
			matches = exactStage(pool, cage, model.MatchCAGE, func(c Candidate) string { return c.cage })
		case "duns":
			matches = exactStage(pool, duns, model.MatchDUNS, func(c Candidate) string { return c.duns })
		case "fuzzy_name":
			matches = r.fuzzyStage(award, pool)
		default:
			zap.L().Warn("resolve: unknown cascade stage skipped", zap.String("stage", stage))
		}
		if len(matches) > 0 {
			return matches
		}
	}

	return nil
}

// Resolve returns the single best match, applying the deterministic
// tie-break: highest confidence, then contract start closest to the award
// completion date, then lexicographically smaller contract id. Returns nil
// when the award has no resolvable vendor in this pool.
func (r *Resolver) Resolve(award *model.Award, pool []Candidate) *Match {
	matches := r.ResolveAll(award, pool)
	if len(matches) == 0 {
		return nil
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if betterMatch(m, best, award.CompletionDate) {
			best = m
		}
	}
	return &best
}

func exactStage(pool []Candidate, id string, method model.MatchMethod, key func(Candidate) string) []Match {
	if id == "" {
		// Absent identifier: the cascade simply skips this stage.
		return nil
	}
	var matches []Match
	for _, c := range pool {
		if key(c) == id {
			matches = append(matches, Match{Candidate: c, Method: method, Confidence: exactMatchConfidence})
		}
	}
	return matches
}

func (r *Resolver) fuzzyStage(award *model.Award, pool []Candidate) []Match {
	name := NormalizeName(award.Firm)
	if name == "" {
		return nil
	}
	var matches []Match
	for _, c := range pool {
		if c.nameNorm == "" {
			continue
		}
		sim := r.sim.Similarity(name, c.nameNorm)
		if sim >= r.threshold {
			matches = append(matches, Match{Candidate: c, Method: model.MatchFuzzyName, Confidence: sim})
		}
	}
	return matches
}

// betterMatch reports whether a should be preferred over b.
func betterMatch(a, b Match, completion time.Time) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	da := absDuration(a.Candidate.Contract.StartDate.Sub(completion))
	db := absDuration(b.Candidate.Contract.StartDate.Sub(completion))
	if da != db {
		return da < db
	}
	return a.Candidate.Contract.PIID < b.Candidate.Contract.PIID
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// ElapsedMonths returns the fractional months between completion and start,
// using the mean Gregorian month length. Used for timing-window checks and
// the timing-proximity signal so both agree on the same clock.
func ElapsedMonths(completion, start time.Time) float64 {
	return start.Sub(completion).Hours() / 24 / 30.436875
}

// WindowBounds converts a month window into absolute dates after completion.
func WindowBounds(completion time.Time, minMonths, maxMonths int) (time.Time, time.Time) {
	from := completion.AddDate(0, minMonths, 0)
	to := completion.AddDate(0, maxMonths, 0)
	return from, to
}
