package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range entries {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func TestExtractZIP(t *testing.T) {
	t.Parallel()

	zipPath := writeZip(t, map[string]string{
		"contracts_1.csv":        "piid,vendor\nC1,Acme\n",
		"nested/contracts_2.csv": "piid,vendor\nC2,Zenith\n",
	})
	dest := t.TempDir()

	extracted, err := ExtractZIP(zipPath, dest)
	require.NoError(t, err)
	require.Len(t, extracted, 2)

	data, err := os.ReadFile(filepath.Join(dest, "contracts_1.csv"))
	require.NoError(t, err)
	assert.Equal(t, "piid,vendor\nC1,Acme\n", string(data))

	_, err = os.Stat(filepath.Join(dest, "nested", "contracts_2.csv"))
	assert.NoError(t, err)
}

func TestExtractZIPSingle(t *testing.T) {
	t.Parallel()

	zipPath := writeZip(t, map[string]string{"extract.csv": "a,b\n1,2\n"})
	dest := t.TempDir()

	path, err := ExtractZIPSingle(zipPath, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "extract.csv"), path)
}

func TestExtractZIPSingleRejectsMultiFile(t *testing.T) {
	t.Parallel()

	zipPath := writeZip(t, map[string]string{"a.csv": "1", "b.csv": "2"})
	_, err := ExtractZIPSingle(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected exactly 1 file, got 2")
}

func TestExtractZIPSlip(t *testing.T) {
	t.Parallel()

	zipPath := writeZip(t, map[string]string{"../escape.csv": "bad"})
	dest := t.TempDir()

	_, err := ExtractZIP(zipPath, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")
	_, statErr := os.Stat(filepath.Join(filepath.Dir(dest), "escape.csv"))
	assert.True(t, os.IsNotExist(statErr), "traversal entry must not be written")
}
