// Package resolve matches an award recipient's identity against a pool of
// federal contract recipients using a prioritized identifier cascade with a
// fuzzy-name fallback.
package resolve

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes lists common legal entity suffixes to strip during name normalization.
var legalSuffixes = []string{
	" LLC", " L.L.C.", " L.L.C",
	" INC", " INC.", " INCORPORATED",
	" CORP", " CORP.", " CORPORATION",
	" LTD", " LTD.", " LIMITED",
	" LP", " L.P.", " L.P",
	" LLP", " L.L.P.", " L.L.P",
	" PC", " P.C.", " P.C",
	" PA", " P.A.", " P.A",
	" CO", " CO.",
	" PLC", " P.L.C.",
	" NA", " N.A.", " N.A",
	" DBA", " D/B/A",
	" PLLC",
}

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// asciiFold strips combining marks so accented recipient names compare equal
// to their plain-ASCII procurement-export spellings.
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName standardizes a recipient name for matching by:
//  1. Trimming whitespace and folding diacritics
//  2. Converting to uppercase
//  3. Removing common legal suffixes (LLC, Inc, Corp, etc.)
//  4. Stripping punctuation (commas, periods, dashes, ampersands)
//  5. Collapsing multiple spaces into single spaces
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	if folded, _, err := transform.String(asciiFold, name); err == nil {
		name = folded
	}

	name = strings.ToUpper(name)

	// Strip legal suffixes, repeating for stacked forms like "Co., Inc.".
	for stripped := true; stripped; {
		stripped = false
		for _, suffix := range legalSuffixes {
			if strings.HasSuffix(name, suffix) {
				name = strings.TrimSuffix(name, suffix)
				name = strings.TrimRight(name, " ,")
				stripped = true
				break
			}
		}
	}

	// Remove common punctuation.
	name = strings.NewReplacer(
		",", "",
		".", "",
		"'", "",
		"\"", "",
		"&", "AND",
		"-", " ",
		"/", " ",
	).Replace(name)

	// Collapse multiple spaces.
	name = multiSpaceRe.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)

	return name
}

// NormalizeIdentifier canonicalizes a UEI/CAGE/DUNS value for exact matching.
// Malformed or empty identifiers normalize to "" and are treated as absent,
// never as errors.
func NormalizeIdentifier(id string) string {
	id = strings.ToUpper(strings.TrimSpace(id))
	id = strings.ReplaceAll(id, "-", "")
	id = strings.ReplaceAll(id, " ", "")
	// Placeholder values occasionally appear in bulk exports.
	switch id {
	case "", "N/A", "NA", "NONE", "UNKNOWN", "0", "000000000":
		return ""
	}
	return id
}
