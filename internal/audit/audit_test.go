package audit

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readRecords(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func monthlyFile(t *testing.T, dir string, prefix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"-*.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	return matches[0]
}

func TestRecordTrainWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	require.NoError(t, w.RecordTrain("(120, 10)", "1.0", "supervised learning model", 2*time.Second))
	require.NoError(t, w.RecordTrain("(130, 10)", "1.0", "supervised learning model", time.Second))

	records := readRecords(t, monthlyFile(t, dir, "train"))
	require.Len(t, records, 3)
	assert.Equal(t, trainHeader, records[0])
	assert.Equal(t, "(120, 10)", records[1][2])
	assert.Equal(t, "(130, 10)", records[2][2])
}

func TestRecordPredictFields(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	require.NoError(t, w.RecordPredict("EIRE", 1234.5, "1.0", "supervised learning model", 50*time.Millisecond))

	records := readRecords(t, monthlyFile(t, dir, "predict"))
	require.Len(t, records, 2)
	assert.Equal(t, predictHeader, records[0])

	row := records[1]
	assert.NotEmpty(t, row[0])
	_, err := time.Parse(time.RFC3339, row[1])
	assert.NoError(t, err)
	assert.Equal(t, "EIRE", row[2])
	assert.Equal(t, "1234.5", row[3])
	assert.Equal(t, "1.0", row[4])
}

func TestRecordsGetDistinctIDs(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	require.NoError(t, w.RecordPredict("EIRE", 1, "1.0", "", 0))
	require.NoError(t, w.RecordPredict("EIRE", 2, "1.0", "", 0))

	records := readRecords(t, monthlyFile(t, dir, "predict"))
	require.Len(t, records, 3)
	assert.NotEqual(t, records[1][0], records[2][0])
}

func TestWriterCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	w := NewWriter(dir)

	require.NoError(t, w.RecordTrain("(1, 10)", "1.0", "", 0))
	assert.DirExists(t, dir)
}
