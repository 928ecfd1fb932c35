package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectRows(t *testing.T, rowCh <-chan []string, errCh <-chan error) [][]string {
	t.Helper()
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	require.NoError(t, <-errCh)
	return rows
}

func TestStreamCSV(t *testing.T) {
	t.Parallel()

	input := "a,b,c\n1,2,3\n4,5,6\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	rows := collectRows(t, rowCh, errCh)

	require.Len(t, rows, 3, "without HasHeader every row is data")
	assert.Equal(t, []string{"a", "b", "c"}, rows[0])
	assert.Equal(t, []string{"4", "5", "6"}, rows[2])
}

func TestStreamCSVHeader(t *testing.T) {
	t.Parallel()

	headerCh := make(chan []string, 1)
	input := "col_a,col_b\nx,y\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
	})
	rows := collectRows(t, rowCh, errCh)

	assert.Equal(t, []string{"col_a", "col_b"}, <-headerCh)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"x", "y"}, rows[0])
}

func TestStreamCSVTrimAndDelimiter(t *testing.T) {
	t.Parallel()

	input := " a |\tb \n c | d \n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		Delimiter: '|',
		TrimSpace: true,
	})
	rows := collectRows(t, rowCh, errCh)

	require.Len(t, rows, 2)
	assert.Equal(t, []string{"a", "b"}, rows[0])
	assert.Equal(t, []string{"c", "d"}, rows[1])
}

func TestStreamCSVVariableFieldCounts(t *testing.T) {
	t.Parallel()

	input := "a,b,c\n1,2\n1,2,3,4\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	rows := collectRows(t, rowCh, errCh)

	// Ragged extracts are tolerated; column mapping happens downstream.
	require.Len(t, rows, 3)
	assert.Len(t, rows[1], 2)
	assert.Len(t, rows[2], 4)
}

func TestStreamCSVMalformed(t *testing.T) {
	t.Parallel()

	input := "a,b\n\"unterminated,1\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	for range rowCh {
	}
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv: read row")
}

func TestStreamCSVCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rowCh, errCh := StreamCSV(ctx, strings.NewReader("a,b\n1,2\n"), CSVOptions{})
	for range rowCh {
	}
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}
