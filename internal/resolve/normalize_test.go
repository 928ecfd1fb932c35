package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Acme Robotics LLC", "ACME ROBOTICS"},
		{"ACME ROBOTICS, LLC", "ACME ROBOTICS"},
		{"Acme Robotics, Inc.", "ACME ROBOTICS"},
		// Stacked suffixes strip repeatedly.
		{"Acme Robotics Co., Inc.", "ACME ROBOTICS"},
		{"Quantum Devices Corp", "QUANTUM DEVICES"},
		{"Smith & Jones Ltd", "SMITH AND JONES"},
		{"Tri-State  Aero/Defense", "TRI STATE AERO DEFENSE"},
		// Diacritics fold to plain ASCII.
		{"Señtio Systèms Inc", "SENTIO SYSTEMS"},
		{"  padded   name  ", "PADDED NAME"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeNameEquivalentForms(t *testing.T) {
	t.Parallel()

	// Alternate legal renderings of the same company collapse to one key.
	forms := []string{
		"Acme Robotics LLC",
		"ACME ROBOTICS, LLC",
		"Acme Robotics, L.L.C.",
		"acme robotics incorporated",
	}
	want := NormalizeName(forms[0])
	for _, f := range forms[1:] {
		assert.Equal(t, want, NormalizeName(f), "form %q", f)
	}
}

func TestNormalizeIdentifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"abc123def456", "ABC123DEF456"},
		{" ABC123DEF456 ", "ABC123DEF456"},
		{"1A2-B3C", "1A2B3C"},
		{"1A2 B3C", "1A2B3C"},
		// Placeholder values are treated as absent.
		{"", ""},
		{"N/A", ""},
		{"na", ""},
		{"NONE", ""},
		{"Unknown", ""},
		{"0", ""},
		{"000000000", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeIdentifier(tt.in), "input %q", tt.in)
	}
}
