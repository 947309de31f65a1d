// Package registry owns the per-country model lifecycle: train a regression
// pipeline on a country's feature rows, persist the fitted artifact under a
// stable (country, algorithm) key, and load it back for inference.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/aavail/revenue-forecast/internal/logging"
	"github.com/aavail/revenue-forecast/internal/models"
)

// ErrModelNotFound indicates no persisted artifact exists for the requested
// key. Training is never triggered implicitly; callers must train first.
var ErrModelNotFound = errors.New("model not found")

// DefaultSplitRatio is the train share of the train/validation partition.
const DefaultSplitRatio = 0.75

// Model is a fitted, immutable per-country regression artifact.
type Model struct {
	Algorithm      string      `json:"algorithm"`
	Country        string      `json:"country"`
	Version        string      `json:"version"`
	FeatureNames   []string    `json:"feature_names"`
	TrainedAt      time.Time   `json:"trained_at"`
	ValidationRMSE float64     `json:"validation_rmse"`
	Pipeline       *PowerRidge `json:"pipeline"`
}

// Predict returns the model's revenue prediction for one feature vector.
func (m *Model) Predict(features []float64) (float64, error) {
	return m.Pipeline.Predict(features)
}

// Registry trains and stores one model per country under a configured
// directory. Writes are atomic (write-then-rename), so a concurrent load
// observes either the old or the new artifact, never a torn one.
type Registry struct {
	dir        string
	algorithm  string
	splitRatio float64
	log        logging.Logger
}

// NewRegistry creates a registry rooted at dir. splitRatio <= 0 or >= 1
// falls back to the default.
func NewRegistry(dir string, algorithm string, splitRatio float64, log logging.Logger) *Registry {
	if algorithm == "" {
		algorithm = AlgorithmPowerRidge
	}
	if splitRatio <= 0 || splitRatio >= 1 {
		splitRatio = DefaultSplitRatio
	}
	return &Registry{
		dir:        dir,
		algorithm:  algorithm,
		splitRatio: splitRatio,
		log:        log.WithComponent("registry"),
	}
}

// Algorithm returns the algorithm identity used for artifact keys.
func (r *Registry) Algorithm() string {
	return r.algorithm
}

// Key returns the persisted artifact key for a country.
func Key(country string, algorithm string) string {
	return country + "_" + algorithm
}

// Train fits a new model on the country's feature rows. The rows are split
// into a random train/validation partition; validation RMSE is computed for
// the report but never gates the result. Every training run, however poor,
// produces a model.
func (r *Registry) Train(country string, rows []models.FeatureRow) (*Model, models.TrainReport, error) {
	started := time.Now()
	if len(rows) == 0 {
		return nil, models.TrainReport{}, fmt.Errorf("no feature rows for country %q", country)
	}

	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, row := range rows {
		X[i] = row.FeatureVector()
		y[i] = row.Target
	}

	trainX, trainY, validX, validY := split(X, y, r.splitRatio)

	pipe := NewPowerRidge()
	if err := pipe.Fit(trainX, trainY); err != nil {
		return nil, models.TrainReport{}, fmt.Errorf("training %q: %w", country, err)
	}

	rmse := validationRMSE(pipe, validX, validY)

	model := &Model{
		Algorithm:      r.algorithm,
		Country:        country,
		Version:        models.ModelVersion,
		FeatureNames:   models.FeatureNames(),
		TrainedAt:      time.Now().UTC(),
		ValidationRMSE: rmse,
		Pipeline:       pipe,
	}

	report := models.TrainReport{
		Country:        country,
		Rows:           len(rows),
		Features:       len(X[0]),
		ValidationRMSE: rmse,
		Runtime:        time.Since(started),
	}

	r.log.WithCountry(country).WithFields(map[string]interface{}{
		"rows":            report.Rows,
		"validation_rmse": report.ValidationRMSE,
	}).Info("Trained model")
	return model, report, nil
}

// Save persists the model under its (country, algorithm) key, overwriting any
// prior artifact for that key. Latest wins; no history is kept.
func (r *Registry) Save(country string, model *Model) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("creating model directory: %w", err)
	}

	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding model for %q: %w", country, err)
	}

	key := Key(country, r.algorithm)
	final := filepath.Join(r.dir, key)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing model for %q: %w", country, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("publishing model for %q: %w", country, err)
	}

	r.log.WithModel(key).Info("Persisted model artifact")
	return nil
}

// Load reads the persisted model for (country, algorithm). Returns
// ErrModelNotFound when no artifact exists for that key.
func (r *Registry) Load(country string, algorithm string) (*Model, error) {
	if algorithm == "" {
		algorithm = r.algorithm
	}
	key := Key(country, algorithm)
	data, err := os.ReadFile(filepath.Join(r.dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, key)
		}
		return nil, fmt.Errorf("reading model %s: %w", key, err)
	}

	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("decoding model %s: %w", key, err)
	}
	if model.Pipeline == nil {
		return nil, fmt.Errorf("decoding model %s: missing pipeline", key)
	}
	return &model, nil
}

// split shuffles the dataset and partitions it at the configured ratio.
// Tiny datasets skip the holdout so the fit still has enough rows.
func split(X [][]float64, y []float64, ratio float64) (trainX [][]float64, trainY []float64, validX [][]float64, validY []float64) {
	n := len(X)
	idx := rand.Perm(n)

	cut := int(float64(n) * ratio)
	if cut < 2 || n-cut < 1 {
		return X, y, nil, nil
	}

	for i, j := range idx {
		if i < cut {
			trainX = append(trainX, X[j])
			trainY = append(trainY, y[j])
		} else {
			validX = append(validX, X[j])
			validY = append(validY, y[j])
		}
	}
	return trainX, trainY, validX, validY
}

func validationRMSE(pipe *PowerRidge, X [][]float64, y []float64) float64 {
	if len(X) == 0 {
		return 0
	}
	var sumSq float64
	for i := range X {
		pred, err := pipe.Predict(X[i])
		if err != nil {
			return 0
		}
		diff := pred - y[i]
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(X)))
}
