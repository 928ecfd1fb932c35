package resolve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var defaultPriority = []string{"uei", "cage", "duns", "fuzzy_name"}

func testPool() []Candidate {
	contracts := []model.FederalContract{
		{PIID: "C-UEI", Vendor: "Totally Different Name Corp", UEI: "UEI123456789", Agency: "DOD", StartDate: date(2024, 3, 1)},
		{PIID: "C-CAGE", Vendor: "Another Vendor LLC", CAGE: "1AB23", Agency: "DOD", StartDate: date(2024, 4, 1)},
		{PIID: "C-FUZZY", Vendor: "Acme Robotics, LLC", Agency: "DOD", StartDate: date(2024, 5, 1)},
	}
	return BuildIndex(contracts).Candidates("", date(2024, 1, 1), date(2025, 1, 1), false)
}

func TestResolveCascadePriority(t *testing.T) {
	t.Parallel()

	// UEI present on both sides: the identifier match wins even though the
	// fuzzy name would also match a different contract.
	award := &model.Award{
		ID:             "A1",
		Firm:           "Acme Robotics LLC",
		UEI:            "UEI123456789",
		CompletionDate: date(2024, 1, 15),
	}
	r := NewResolver(TokenSetSimilarity{}, defaultPriority, 0.85)

	m := r.Resolve(award, testPool())
	require.NotNil(t, m)
	assert.Equal(t, "C-UEI", m.Candidate.Contract.PIID)
	assert.Equal(t, model.MatchUEI, m.Method)
	assert.Equal(t, 0.99, m.Confidence)
}

func TestResolveSkipsAbsentIdentifiers(t *testing.T) {
	t.Parallel()

	// No UEI on the award: the cascade skips that stage rather than treating
	// absence as a mismatch, and CAGE resolves.
	award := &model.Award{
		ID:             "A2",
		Firm:           "Acme Robotics LLC",
		CAGE:           "1ab-23",
		CompletionDate: date(2024, 1, 15),
	}
	r := NewResolver(TokenSetSimilarity{}, defaultPriority, 0.85)

	m := r.Resolve(award, testPool())
	require.NotNil(t, m)
	assert.Equal(t, "C-CAGE", m.Candidate.Contract.PIID)
	assert.Equal(t, model.MatchCAGE, m.Method)
}

func TestResolveFuzzyFallback(t *testing.T) {
	t.Parallel()

	// No identifiers at all: the fuzzy stage matches on normalized names.
	award := &model.Award{
		ID:             "A3",
		Firm:           "ACME ROBOTICS, LLC",
		CompletionDate: date(2024, 1, 15),
	}
	r := NewResolver(TokenSetSimilarity{}, defaultPriority, 0.85)

	m := r.Resolve(award, testPool())
	require.NotNil(t, m)
	assert.Equal(t, "C-FUZZY", m.Candidate.Contract.PIID)
	assert.Equal(t, model.MatchFuzzyName, m.Method)
	assert.GreaterOrEqual(t, m.Confidence, 0.85)
}

func TestResolveBelowFuzzyThreshold(t *testing.T) {
	t.Parallel()

	award := &model.Award{
		ID:             "A4",
		Firm:           "Orbital Ceramics Inc",
		CompletionDate: date(2024, 1, 15),
	}
	r := NewResolver(TokenSetSimilarity{}, defaultPriority, 0.85)

	assert.Nil(t, r.Resolve(award, testPool()), "dissimilar name must not resolve")
}

func TestResolveEmptyPool(t *testing.T) {
	t.Parallel()

	award := &model.Award{ID: "A5", Firm: "Acme Robotics LLC", CompletionDate: date(2024, 1, 15)}
	r := NewResolver(TokenSetSimilarity{}, defaultPriority, 0.85)
	assert.Nil(t, r.Resolve(award, nil))
}

func TestResolveTieBreakClosestStart(t *testing.T) {
	t.Parallel()

	// Two contracts share the UEI at equal confidence: the one starting
	// closest to award completion wins.
	contracts := []model.FederalContract{
		{PIID: "C-FAR", Vendor: "Acme Robotics LLC", UEI: "UEI123456789", Agency: "DOD", StartDate: date(2024, 12, 1)},
		{PIID: "C-NEAR", Vendor: "Acme Robotics LLC", UEI: "UEI123456789", Agency: "DOD", StartDate: date(2024, 2, 1)},
	}
	pool := BuildIndex(contracts).Candidates("", date(2024, 1, 1), date(2025, 1, 1), false)

	award := &model.Award{ID: "A6", Firm: "Acme Robotics LLC", UEI: "UEI123456789", CompletionDate: date(2024, 1, 15)}
	r := NewResolver(TokenSetSimilarity{}, defaultPriority, 0.85)

	m := r.Resolve(award, pool)
	require.NotNil(t, m)
	assert.Equal(t, "C-NEAR", m.Candidate.Contract.PIID)
}

func TestResolveTieBreakLexicographicID(t *testing.T) {
	t.Parallel()

	// Equal confidence and equal start date: smaller contract id wins, so
	// re-runs over the same pool always pick the same contract.
	contracts := []model.FederalContract{
		{PIID: "C-B", Vendor: "Acme Robotics LLC", UEI: "UEI123456789", Agency: "DOD", StartDate: date(2024, 2, 1)},
		{PIID: "C-A", Vendor: "Acme Robotics LLC", UEI: "UEI123456789", Agency: "DOD", StartDate: date(2024, 2, 1)},
	}
	pool := BuildIndex(contracts).Candidates("", date(2024, 1, 1), date(2025, 1, 1), false)

	award := &model.Award{ID: "A7", Firm: "Acme Robotics LLC", UEI: "UEI123456789", CompletionDate: date(2024, 1, 15)}
	r := NewResolver(TokenSetSimilarity{}, defaultPriority, 0.85)

	m := r.Resolve(award, pool)
	require.NotNil(t, m)
	assert.Equal(t, "C-A", m.Candidate.Contract.PIID)
}

func TestResolveAllReturnsFirstStageOnly(t *testing.T) {
	t.Parallel()

	// Both a UEI match and a fuzzy-name match exist; ResolveAll stops at the
	// first stage that produced anything.
	contracts := []model.FederalContract{
		{PIID: "C-1", Vendor: "Unrelated Vendor", UEI: "UEI123456789", Agency: "DOD", StartDate: date(2024, 3, 1)},
		{PIID: "C-2", Vendor: "Acme Robotics LLC", Agency: "DOD", StartDate: date(2024, 4, 1)},
	}
	pool := BuildIndex(contracts).Candidates("", date(2024, 1, 1), date(2025, 1, 1), false)

	award := &model.Award{ID: "A8", Firm: "Acme Robotics LLC", UEI: "UEI123456789", CompletionDate: date(2024, 1, 15)}
	r := NewResolver(TokenSetSimilarity{}, defaultPriority, 0.85)

	matches := r.ResolveAll(award, pool)
	require.Len(t, matches, 1)
	assert.Equal(t, "C-1", matches[0].Candidate.Contract.PIID)
	assert.Equal(t, model.MatchUEI, matches[0].Method)
}

func TestCandidatesWindowFilter(t *testing.T) {
	t.Parallel()

	contracts := []model.FederalContract{
		{PIID: "C-BEFORE", Vendor: "V", Agency: "DOD", StartDate: date(2023, 12, 31)},
		{PIID: "C-EDGE-LO", Vendor: "V", Agency: "DOD", StartDate: date(2024, 1, 1)},
		{PIID: "C-IN", Vendor: "V", Agency: "DOD", StartDate: date(2024, 6, 1)},
		{PIID: "C-EDGE-HI", Vendor: "V", Agency: "DOD", StartDate: date(2026, 1, 1)},
		{PIID: "C-AFTER", Vendor: "V", Agency: "DOD", StartDate: date(2026, 1, 2)},
	}
	idx := BuildIndex(contracts)
	assert.Equal(t, 5, idx.Size())

	got := idx.Candidates("", date(2024, 1, 1), date(2026, 1, 1), false)
	ids := make([]string, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.Contract.PIID)
	}
	// Window bounds are inclusive; outside the window is excluded entirely.
	assert.Equal(t, []string{"C-EDGE-LO", "C-IN", "C-EDGE-HI"}, ids)
}

func TestCandidatesAgencyRestriction(t *testing.T) {
	t.Parallel()

	contracts := []model.FederalContract{
		{PIID: "C-DOD", Vendor: "V", Agency: "DOD", StartDate: date(2024, 2, 1)},
		{PIID: "C-FUND", Vendor: "V", Agency: "GSA", FundingAgency: "DOD", StartDate: date(2024, 3, 1)},
		{PIID: "C-NASA", Vendor: "V", Agency: "NASA", StartDate: date(2024, 4, 1)},
	}
	idx := BuildIndex(contracts)

	got := idx.Candidates("DOD", date(2024, 1, 1), date(2025, 1, 1), true)
	require.Len(t, got, 2, "funding-agency match also passes the restriction")
	assert.Equal(t, "C-DOD", got[0].Contract.PIID)
	assert.Equal(t, "C-FUND", got[1].Contract.PIID)

	// Restriction off: the whole window qualifies.
	got = idx.Candidates("DOD", date(2024, 1, 1), date(2025, 1, 1), false)
	assert.Len(t, got, 3)
}

func TestElapsedMonths(t *testing.T) {
	t.Parallel()

	completion := date(2024, 1, 1)
	assert.InDelta(t, 0, ElapsedMonths(completion, completion), 1e-9)
	// 2024-07-01 is 182 days out; the mean Gregorian month is 30.436875 days.
	assert.InDelta(t, 182.0/30.436875, ElapsedMonths(completion, date(2024, 7, 1)), 1e-9)
	assert.Less(t, ElapsedMonths(completion, date(2023, 12, 1)), 0.0, "negative before completion")
}

func TestWindowBounds(t *testing.T) {
	t.Parallel()

	from, to := WindowBounds(date(2024, 1, 15), 0, 24)
	assert.Equal(t, date(2024, 1, 15), from)
	assert.Equal(t, date(2026, 1, 15), to)

	from, to = WindowBounds(date(2024, 1, 15), 3, 12)
	assert.Equal(t, date(2024, 4, 15), from)
	assert.Equal(t, date(2025, 1, 15), to)
}
