package harvest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/trademark-harvester/internal/batch"
)

func TestWriteArtifactSortedAndPretty(t *testing.T) {
	t.Parallel()

	days := batch.NewCollection[DayRecord]()
	days.Put("2024-01-03", DayRecord{Count: 1, Items: []json.RawMessage{json.RawMessage(`{"applicationNum":"T3"}`)}})
	days.Put("2024-01-01", DayRecord{Count: 0})

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteArtifact(path, Entries(days)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"date":"2024-01-01","count":0,"items":[]},
		{"date":"2024-01-03","count":1,"items":[{"applicationNum":"T3"}]}
	]`, string(data))
	assert.Contains(t, string(data), "\n  {\n    \"date\": \"2024-01-01\"")
}

func TestWriteArtifactEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteArtifact(path, nil))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestWriteArtifactUnwritableDir(t *testing.T) {
	t.Parallel()

	err := WriteArtifact(filepath.Join(t.TempDir(), "missing", "out.json"), nil)
	require.Error(t, err)
}

func TestReadArtifactRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.json")
	entries := []Entry{
		{Date: "2024-01-01", Count: 1, Items: []json.RawMessage{json.RawMessage(`{"x":1}`)}},
		{Date: "2024-01-02", Count: 0, Items: []json.RawMessage{}},
	}
	require.NoError(t, WriteArtifact(path, entries))

	days, err := ReadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, days.Keys())
	rec, ok := days.Get("2024-01-01")
	require.True(t, ok)
	assert.JSONEq(t, `{"x":1}`, string(rec.Items[0]))
}

func TestReadArtifactErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := ReadArtifact(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"date":1}`), 0o600))
	_, err = ReadArtifact(bad)
	require.Error(t, err)
}
