// Package services wires the ingestion, feature-engineering and model
// registry components into the train and predict operations exposed to the
// HTTP layer and the CLI.
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/aavail/revenue-forecast/internal/audit"
	"github.com/aavail/revenue-forecast/internal/config"
	"github.com/aavail/revenue-forecast/internal/ingest"
	"github.com/aavail/revenue-forecast/internal/logging"
	"github.com/aavail/revenue-forecast/internal/models"
	"github.com/aavail/revenue-forecast/internal/registry"
	"github.com/aavail/revenue-forecast/internal/timeseries"
)

// CountryAll is the sentinel that expands to every country present in the
// current feature table.
const CountryAll = "all"

var (
	// ErrUnknownCountry indicates the queried country is not in the feature table.
	ErrUnknownCountry = errors.New("country not in provided data")
	// ErrUnknownDate indicates no feature row exists for the queried date.
	// That includes dates inside the warmup and forward-target windows.
	ErrUnknownDate = errors.New("date not in provided data")
)

// Forecaster implements the per-country revenue forecasting operations.
// The feature table is re-derived from the source directory on every predict
// call, so predictions always reflect the latest ingested data.
type Forecaster struct {
	cfg        *config.Config
	normalizer *ingest.Normalizer
	builder    *timeseries.Builder
	registry   *registry.Registry
	audit      *audit.Writer
	log        logging.Logger
}

// NewForecaster creates the forecasting service.
func NewForecaster(cfg *config.Config, reg *registry.Registry, auditWriter *audit.Writer, log logging.Logger) *Forecaster {
	return &Forecaster{
		cfg:        cfg,
		normalizer: ingest.NewNormalizer(log),
		builder:    timeseries.NewBuilder(log),
		registry:   reg,
		audit:      auditWriter,
		log:        log.WithComponent("forecaster"),
	}
}

// FetchAndEngineer loads every source file in dir and returns the engineered
// feature table restricted to the configured top countries by total revenue.
func (f *Forecaster) FetchAndEngineer(dir string) (*models.FeatureTable, error) {
	records, err := f.normalizer.LoadDirectory(dir)
	if err != nil {
		return nil, err
	}
	table := f.builder.Build(records)
	return timeseries.SelectTopCountries(table, f.cfg.Training.TopCountries), nil
}

// TrainAll trains and persists one model per country in the table. Each
// country's model is fully independent; a training failure aborts the run
// since a half-trained deployment is worse than a stale one.
func (f *Forecaster) TrainAll(table *models.FeatureTable) (map[string]*registry.Model, error) {
	started := time.Now()
	trained := make(map[string]*registry.Model)
	rows, features := 0, len(models.FeatureNames())
	for _, country := range table.Countries() {
		model, report, err := f.registry.Train(country, table.CountryRows(country))
		if err != nil {
			return nil, err
		}
		if err := f.registry.Save(country, model); err != nil {
			return nil, err
		}
		trained[country] = model
		rows += report.Rows
	}

	shape := fmt.Sprintf("(%d, %d)", rows, features)
	if err := f.audit.RecordTrain(shape, models.ModelVersion, models.ModelVersionNote, time.Since(started)); err != nil {
		f.log.WithError(err).Warn("Failed to write train audit record")
	}

	f.log.WithFields(map[string]interface{}{
		"countries": len(trained),
		"rows":      rows,
	}).Info("Training run complete")
	return trained, nil
}

// TrainFromDir is the convenience used by the train endpoint and the CLI:
// fetch, engineer, train, persist.
func (f *Forecaster) TrainFromDir(dir string) (map[string]*registry.Model, error) {
	table, err := f.FetchAndEngineer(dir)
	if err != nil {
		return nil, err
	}
	return f.TrainAll(table)
}

// PredictOne predicts the forward 30-day revenue for (country, date).
// The feature table is re-derived from the training directory; the model is
// loaded from the registry, never trained implicitly.
func (f *Forecaster) PredictOne(country string, date time.Time) (*models.Prediction, error) {
	started := time.Now()

	table, err := f.FetchAndEngineer(f.cfg.Data.TrainDir)
	if err != nil {
		return nil, err
	}

	if !table.HasCountry(country) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCountry, country)
	}
	row, ok := table.RowAt(country, date)
	if !ok {
		return nil, fmt.Errorf("%w: %q for country %q", ErrUnknownDate, date.Format("2006-01-02"), country)
	}

	model, err := f.registry.Load(country, f.cfg.Models.Algorithm)
	if err != nil {
		return nil, err
	}

	yPred, err := model.Predict(row.FeatureVector())
	if err != nil {
		return nil, fmt.Errorf("predicting for %q: %w", country, err)
	}

	if err := f.audit.RecordPredict(country, yPred, models.ModelVersion, models.ModelVersionNote, time.Since(started)); err != nil {
		f.log.WithError(err).Warn("Failed to write predict audit record")
	}

	f.log.WithCountry(country).WithFields(map[string]interface{}{
		"date":   date.Format("2006-01-02"),
		"y_pred": yPred,
	}).Info("Prediction served")

	return &models.Prediction{Country: country, YPred: []float64{yPred}}, nil
}

// PredictMany resolves each requested country independently. A per-country
// failure is reported under that key and never aborts the other countries.
// The CountryAll sentinel expands to every country of the current table.
func (f *Forecaster) PredictMany(countries []string, date time.Time) (map[string]models.PredictionOutcome, error) {
	if len(countries) == 1 && countries[0] == CountryAll {
		table, err := f.FetchAndEngineer(f.cfg.Data.TrainDir)
		if err != nil {
			return nil, err
		}
		countries = table.Countries()
	}

	out := make(map[string]models.PredictionOutcome, len(countries))
	for _, country := range countries {
		pred, err := f.PredictOne(country, date)
		if err != nil {
			out[country] = models.PredictionOutcome{Error: err.Error()}
			continue
		}
		out[country] = models.PredictionOutcome{Prediction: pred}
	}
	return out, nil
}
