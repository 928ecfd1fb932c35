package resolve

import (
	"sort"
	"strings"
)

// Similarity computes a normalized string similarity in [0, 1]. The resolver
// takes this as an injected capability so the algorithm can be swapped
// without touching the cascade logic.
type Similarity interface {
	Similarity(a, b string) float64
}

// TokenSetSimilarity implements Similarity with a token-set ratio: both names
// are split into token sets, and the best pairwise edit-distance ratio among
// the intersection/remainder combinations is returned. Word order and
// duplicated tokens do not affect the score.
type TokenSetSimilarity struct{}

func (TokenSetSimilarity) Similarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}

	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var inter, onlyA, onlyB []string
	for t := range ta {
		if tb[t] {
			inter = append(inter, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range tb {
		if !ta[t] {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(inter)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(inter, " ")
	s1 := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	s2 := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := editRatio(base, s1)
	if r := editRatio(base, s2); r > best {
		best = r
	}
	if r := editRatio(s1, s2); r > best {
		best = r
	}
	return best
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(s) {
		set[t] = true
	}
	return set
}

// editRatio is a Levenshtein-based similarity: 1 - distance/maxLen.
func editRatio(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return 1.0 - float64(prev[len(rb)])/float64(maxLen)
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
