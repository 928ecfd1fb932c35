package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCETLabels(t *testing.T) {
	t.Parallel()

	csv := strings.Join([]string{
		"Award ID,PIID,Technology Area",
		"A1,,Artificial Intelligence",
		",C1,Quantum Information",
		"A2,C2,Hypersonics",
		",,Biotechnology",  // no key
		"A3,,",             // no label
	}, "\n")

	labels, rejects, err := ParseCETLabels(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, labels, 3)
	require.Len(t, rejects, 2)

	assert.Equal(t, "A1", labels[0].AwardID)
	assert.Equal(t, "", labels[0].PIID)
	assert.Equal(t, "Artificial Intelligence", labels[0].Label)
	assert.Equal(t, "C1", labels[1].PIID)
	assert.Equal(t, "A2", labels[2].AwardID)
	assert.Equal(t, "C2", labels[2].PIID)

	assert.Equal(t, 5, rejects[0].Line)
	assert.Contains(t, rejects[0].Err, "missing award id or piid")
	assert.Equal(t, 6, rejects[1].Line)
	assert.Contains(t, rejects[1].Err, "missing cet label")
}

func TestParseCETLabelsMissingLabelColumn(t *testing.T) {
	t.Parallel()

	csv := "Award ID,PIID\nA1,C1\n"
	_, _, err := ParseCETLabels(context.Background(), strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column")
}
