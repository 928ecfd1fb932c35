// Package ingest parses award, contract, and patent extracts into model
// records. Malformed rows are collected, not fatal: one bad row in a
// million-row extract must not sink the import.
package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// RecordError describes one rejected input row.
type RecordError struct {
	Line int    `json:"line"`
	Err  string `json:"error"`
}

func (e RecordError) String() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

// header maps normalized column names to their positions. Column matching is
// case-insensitive and tolerant of the spacing/underscore variations across
// portal export vintages.
type header map[string]int

func newHeader(cols []string) header {
	h := make(header, len(cols))
	for i, c := range cols {
		h[normalizeColumn(c)] = i
	}
	return h
}

func normalizeColumn(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	c = strings.ReplaceAll(c, " ", "_")
	c = strings.ReplaceAll(c, "-", "_")
	return c
}

// get returns the value of the first matching column name, or "".
func (h header) get(row []string, names ...string) string {
	for _, name := range names {
		if i, ok := h[name]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
	}
	return ""
}

// require errors when none of the column names exist in the header at all.
func (h header) require(names ...string) error {
	for _, name := range names {
		if _, ok := h[name]; ok {
			return nil
		}
	}
	return eris.Errorf("ingest: missing required column %q", names[0])
}

// dateLayouts covers the formats seen across award and procurement exports.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006/01/02",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, eris.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("unrecognized date %q", s)
}

func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, eris.Errorf("invalid number %q", s)
	}
	return &v, nil
}
