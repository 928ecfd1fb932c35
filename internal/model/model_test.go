package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePhase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want AwardPhase
	}{
		{"I", PhaseI},
		{"1", PhaseI},
		{"Phase I", PhaseI},
		{"phase 1", PhaseI},
		{"II", PhaseII},
		{"2", PhaseII},
		{"Phase II", PhaseII},
		{"  PHASE II ", PhaseII},
		{"III", PhaseIII},
		{"3", PhaseIII},
		{"Phase III", PhaseIII},
		{"", ""},
		{"IV", ""},
		{"Phase", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePhase(tt.in), "input %q", tt.in)
	}
}

func TestParseProgram(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ProgramSBIR, ParseProgram("sbir"))
	assert.Equal(t, ProgramSBIR, ParseProgram(" SBIR "))
	assert.Equal(t, ProgramSTTR, ParseProgram("STTR"))
	assert.Equal(t, Program(""), ParseProgram("BAA"))
	assert.Equal(t, Program(""), ParseProgram(""))
}

func TestParseCompetitionType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want CompetitionType
	}{
		{"NOT COMPETED", CompetitionSoleSource},
		{"Only One Source", CompetitionSoleSource},
		{"SOLE SOURCE", CompetitionSoleSource},
		{"NOT COMPETED UNDER SAP", CompetitionSoleSource},
		{"COMPETED UNDER SAP - LIMITED SOURCES", CompetitionLimited},
		{"SBA 8(a) SET-ASIDE", CompetitionLimited},
		{"SET ASIDE", CompetitionLimited},
		{"COMPETITIVENESS EXCLUSION", CompetitionLimited},
		{"FULL AND OPEN COMPETITION", CompetitionFullOpen},
		{"COMPETED", CompetitionFullOpen},
		// Unknown and empty both fall back to the weakest continuity assumption.
		{"SOMETHING NEW", CompetitionFullOpen},
		{"", CompetitionFullOpen},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCompetitionType(tt.in), "input %q", tt.in)
	}
}

func TestSignalsAllCanonicalOrder(t *testing.T) {
	t.Parallel()

	s := Signals{
		Agency: SignalValue{Score: 1, Present: true},
		Patent: SignalValue{Score: 0.5, Present: true},
	}
	all := s.All()
	assert.Len(t, all, 6)
	assert.Equal(t, SignalAgency, all[0].Name)
	assert.Equal(t, SignalTiming, all[1].Name)
	assert.Equal(t, SignalCompetition, all[2].Name)
	assert.Equal(t, SignalPatent, all[3].Name)
	assert.Equal(t, SignalCET, all[4].Name)
	assert.Equal(t, SignalText, all[5].Name)
	assert.True(t, all[0].Value.Present)
	assert.False(t, all[1].Value.Present)
}
