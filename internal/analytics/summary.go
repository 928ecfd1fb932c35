package analytics

import (
	"sort"

	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
	"github.com/hollomancer/sbir-analytics-sub010/internal/resolve"
)

// DimensionRate is the transition rate within one slice of a breakdown
// dimension (phase, agency, or technology area). Reliable is false when the
// slice's sample is below the configured minimum; the rate is still reported
// so small slices are visible rather than silently dropped.
type DimensionRate struct {
	Key          string  `json:"key"`
	Total        int     `json:"total"`
	Transitioned int     `json:"transitioned"`
	Rate         float64 `json:"rate"`
	Reliable     bool    `json:"reliable"`
}

// Summary is the dual-perspective aggregate over one run's transition set.
// Award-level counts individual awards; company-level counts companies with
// at least one award, a company counting as transitioned when any of its
// awards did.
type Summary struct {
	TotalAwards          int     `json:"total_awards"`
	TransitionedAwards   int     `json:"transitioned_awards"`
	AwardRate            float64 `json:"award_rate"`
	TotalCompanies       int     `json:"total_companies"`
	TransitionedCompanies int    `json:"transitioned_companies"`
	CompanyRate          float64 `json:"company_rate"`

	ByPhase  []DimensionRate `json:"by_phase"`
	ByAgency []DimensionRate `json:"by_agency"`
	ByCET    []DimensionRate `json:"by_cet"`

	Profiles []model.TransitionProfile `json:"profiles"`
}

// Summarize recomputes the full analytics summary from scratch. Transitions
// for awards not in the award set are ignored; an award with a transition
// record counts as transitioned regardless of tier.
func Summarize(awards []model.Award, transitions []model.Transition, minSample int) *Summary {
	transitioned := make(map[string]*model.Transition, len(transitions))
	for i := range transitions {
		transitioned[transitions[i].AwardID] = &transitions[i]
	}

	s := &Summary{TotalAwards: len(awards)}

	phases := make(map[string]*DimensionRate)
	agencies := make(map[string]*DimensionRate)
	cets := make(map[string]*DimensionRate)
	companies := make(map[string]*model.TransitionProfile)
	scoreSums := make(map[string]float64)

	for i := range awards {
		a := &awards[i]
		t, ok := transitioned[a.ID]
		if ok {
			s.TransitionedAwards++
		}

		tally(phases, string(a.Phase), ok)
		tally(agencies, a.Agency, ok)
		if a.CETLabel != "" {
			tally(cets, a.CETLabel, ok)
		}

		company := resolve.NormalizeName(a.Firm)
		if company == "" {
			continue
		}
		p := companies[company]
		if p == nil {
			p = &model.TransitionProfile{Company: company}
			companies[company] = p
		}
		p.TotalAwards++
		if ok {
			p.TransitionedCount++
			scoreSums[company] += t.Score
		}
	}

	s.TotalCompanies = len(companies)
	for name, p := range companies {
		p.SuccessRate = rate(p.TransitionedCount, p.TotalAwards)
		if p.TransitionedCount > 0 {
			s.TransitionedCompanies++
			p.AvgScore = scoreSums[name] / float64(p.TransitionedCount)
		}
		s.Profiles = append(s.Profiles, *p)
	}
	sort.Slice(s.Profiles, func(i, j int) bool { return s.Profiles[i].Company < s.Profiles[j].Company })

	s.AwardRate = rate(s.TransitionedAwards, s.TotalAwards)
	s.CompanyRate = rate(s.TransitionedCompanies, s.TotalCompanies)

	s.ByPhase = finalize(phases, minSample)
	s.ByAgency = finalize(agencies, minSample)
	s.ByCET = finalize(cets, minSample)
	return s
}

func tally(m map[string]*DimensionRate, key string, transitioned bool) {
	if key == "" {
		key = "unknown"
	}
	d := m[key]
	if d == nil {
		d = &DimensionRate{Key: key}
		m[key] = d
	}
	d.Total++
	if transitioned {
		d.Transitioned++
	}
}

func finalize(m map[string]*DimensionRate, minSample int) []DimensionRate {
	out := make([]DimensionRate, 0, len(m))
	for _, d := range m {
		d.Rate = rate(d.Transitioned, d.Total)
		d.Reliable = d.Total >= minSample
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
