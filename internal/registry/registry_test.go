package registry

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aavail/revenue-forecast/internal/logging"
	"github.com/aavail/revenue-forecast/internal/models"
)

func testLogger() logging.Logger {
	return logging.NewStandardLogger("error", "production")
}

// syntheticRows fabricates feature rows with a strong linear relationship
// between the trailing sums and the target, enough signal for any sane fit.
func syntheticRows(n int) []models.FeatureRow {
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]models.FeatureRow, 0, n)
	for i := 0; i < n; i++ {
		base := float64(i + 1)
		rows = append(rows, models.FeatureRow{
			Date:        start.AddDate(0, 0, i),
			Country:     "Alpha",
			Price:       base,
			Price7d:     7 * base,
			Price14d:    14 * base,
			Price21d:    21 * base,
			Price28d:    28 * base,
			Price7dDer:  1,
			Price14dDer: 1,
			Price21dDer: 1,
			Price28dDer: 1,
			Month:       int(start.AddDate(0, 0, i).Month()),
			Day:         start.AddDate(0, 0, i).Day(),
			Target:      30 * base,
		})
	}
	return rows
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(t.TempDir(), "", 0.75, testLogger())
}

func TestTrainProducesFiniteModel(t *testing.T) {
	reg := newTestRegistry(t)

	model, report, err := reg.Train("Alpha", syntheticRows(60))
	require.NoError(t, err)
	require.NotNil(t, model)

	assert.Equal(t, AlgorithmPowerRidge, model.Algorithm)
	assert.Equal(t, "Alpha", model.Country)
	assert.Equal(t, models.FeatureNames(), model.FeatureNames)
	assert.Equal(t, 60, report.Rows)
	assert.False(t, math.IsNaN(report.ValidationRMSE))

	for _, row := range syntheticRows(60) {
		pred, err := model.Predict(row.FeatureVector())
		require.NoError(t, err)
		assert.False(t, math.IsNaN(pred), "prediction must be finite")
		assert.False(t, math.IsInf(pred, 0), "prediction must be finite")
	}
}

func TestTrainEmptyRows(t *testing.T) {
	reg := newTestRegistry(t)
	_, _, err := reg.Train("Alpha", nil)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	reg := newTestRegistry(t)

	model, _, err := reg.Train("Alpha", syntheticRows(60))
	require.NoError(t, err)
	require.NoError(t, reg.Save("Alpha", model))

	loaded, err := reg.Load("Alpha", "")
	require.NoError(t, err)
	assert.Equal(t, model.Country, loaded.Country)
	assert.Equal(t, model.Pipeline.Coef, loaded.Pipeline.Coef)

	want, err := model.Predict(syntheticRows(60)[10].FeatureVector())
	require.NoError(t, err)
	got, err := loaded.Predict(syntheticRows(60)[10].FeatureVector())
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-9)
}

func TestLoadMissingModel(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.Load("Nowhere", "")
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestSaveOverwritesLatestWins(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(dir, "", 0.75, testLogger())

	first, _, err := reg.Train("Alpha", syntheticRows(60))
	require.NoError(t, err)
	require.NoError(t, reg.Save("Alpha", first))

	second, _, err := reg.Train("Alpha", syntheticRows(80))
	require.NoError(t, err)
	require.NoError(t, reg.Save("Alpha", second))

	// Exactly one artifact for the key; no history retained.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Key("Alpha", AlgorithmPowerRidge), entries[0].Name())

	loaded, err := reg.Load("Alpha", AlgorithmPowerRidge)
	require.NoError(t, err)
	assert.False(t, loaded.TrainedAt.Before(first.TrainedAt))
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(dir, "", 0.75, testLogger())

	model, _, err := reg.Train("Alpha", syntheticRows(60))
	require.NoError(t, err)
	require.NoError(t, reg.Save("Alpha", model))

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestKeyScheme(t *testing.T) {
	assert.Equal(t, "EIRE_PowerRidge", Key("EIRE", AlgorithmPowerRidge))
	assert.Equal(t, "United Kingdom_PowerRidge", Key("United Kingdom", AlgorithmPowerRidge))
}

func TestPowerRidgeLearnsMonotoneSignal(t *testing.T) {
	// y strictly increasing in a single feature: the fitted pipeline must
	// preserve the ordering even through the power transform.
	var X [][]float64
	var y []float64
	for i := 0; i < 50; i++ {
		x := float64(i)
		X = append(X, []float64{x, 2 * x})
		y = append(y, 5*x+3)
	}

	pipe := NewPowerRidge()
	require.NoError(t, pipe.Fit(X, y))

	low, err := pipe.Predict([]float64{5, 10})
	require.NoError(t, err)
	high, err := pipe.Predict([]float64{45, 90})
	require.NoError(t, err)
	assert.Greater(t, high, low)
}

func TestPowerRidgePredictChecksDimensions(t *testing.T) {
	pipe := NewPowerRidge()
	require.NoError(t, pipe.Fit([][]float64{{1, 2}, {2, 3}, {3, 4}, {4, 5}}, []float64{1, 2, 3, 4}))

	_, err := pipe.Predict([]float64{1})
	assert.Error(t, err)

	_, err = NewPowerRidge().Predict([]float64{1, 2})
	assert.Error(t, err)
}
