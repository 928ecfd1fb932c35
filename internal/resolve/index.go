package resolve

import (
	"sort"
	"time"

	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
)

// Candidate is a contract prepared for matching: identifiers and name are
// normalized once at index build time so per-award lookups stay cheap.
type Candidate struct {
	Contract *model.FederalContract

	uei      string
	cage     string
	duns     string
	nameNorm string
}

// NormalizedName exposes the precomputed normalized vendor name.
func (c Candidate) NormalizedName() string { return c.nameNorm }

// ContractIndex is the precomputed lookup over the contract pool. It is built
// once, single-threaded, before scoring begins and shared read-only across
// workers; it is never mutated during a run.
type ContractIndex struct {
	// byStart holds all candidates ordered by start date, then PIID.
	byStart []Candidate
}

// BuildIndex prepares the contract pool for candidate selection.
func BuildIndex(contracts []model.FederalContract) *ContractIndex {
	idx := &ContractIndex{
		byStart: make([]Candidate, 0, len(contracts)),
	}
	for i := range contracts {
		c := &contracts[i]
		idx.byStart = append(idx.byStart, Candidate{
			Contract: c,
			uei:      NormalizeIdentifier(c.UEI),
			cage:     NormalizeIdentifier(c.CAGE),
			duns:     NormalizeIdentifier(c.DUNS),
			nameNorm: NormalizeName(c.Vendor),
		})
	}
	sort.Slice(idx.byStart, func(i, j int) bool {
		a, b := idx.byStart[i], idx.byStart[j]
		if !a.Contract.StartDate.Equal(b.Contract.StartDate) {
			return a.Contract.StartDate.Before(b.Contract.StartDate)
		}
		return a.Contract.PIID < b.Contract.PIID
	})
	return idx
}

// Size returns the number of indexed contracts.
func (idx *ContractIndex) Size() int { return len(idx.byStart) }

// Candidates returns the contracts starting within [from, to], optionally
// restricted to those whose awarding or funding agency matches agency.
// Contracts outside the window are never candidates; they are excluded here,
// not scored at zero downstream.
func (idx *ContractIndex) Candidates(agency string, from, to time.Time, restrictAgency bool) []Candidate {
	lo := sort.Search(len(idx.byStart), func(i int) bool {
		return !idx.byStart[i].Contract.StartDate.Before(from)
	})
	hi := sort.Search(len(idx.byStart), func(i int) bool {
		return idx.byStart[i].Contract.StartDate.After(to)
	})
	if lo >= hi {
		return nil
	}

	out := make([]Candidate, 0, hi-lo)
	for _, c := range idx.byStart[lo:hi] {
		if restrictAgency && agency != "" {
			if c.Contract.Agency != agency && c.Contract.FundingAgency != agency {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}
