package main

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/aavail/revenue-forecast/internal/audit"
	"github.com/aavail/revenue-forecast/internal/config"
	"github.com/aavail/revenue-forecast/internal/logging"
	"github.com/aavail/revenue-forecast/internal/models"
	"github.com/aavail/revenue-forecast/internal/registry"
	"github.com/aavail/revenue-forecast/internal/services"
)

// runTrainer performs a one-shot training pass over the configured training
// directory, persisting one model per retained country.
func runTrainer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)

	reg := registry.NewRegistry(cfg.Models.Dir, cfg.Models.Algorithm, cfg.Training.SplitRatio, logger)
	auditWriter := audit.NewWriter(cfg.Audit.Dir)
	forecaster := services.NewForecaster(cfg, reg, auditWriter, logger)

	fmt.Printf("Extracting data from folder %s\n", cfg.Data.TrainDir)
	table, err := forecaster.FetchAndEngineer(cfg.Data.TrainDir)
	if err != nil {
		return err
	}

	countries := table.Countries()
	bar := progressbar.Default(int64(len(countries)), "training models")
	started := time.Now()
	rows := 0
	for _, country := range countries {
		model, report, err := reg.Train(country, table.CountryRows(country))
		if err != nil {
			return err
		}
		if err := reg.Save(country, model); err != nil {
			return err
		}
		rows += report.Rows
		_ = bar.Add(1)
	}

	shape := fmt.Sprintf("(%d, %d)", rows, len(models.FeatureNames()))
	if err := auditWriter.RecordTrain(shape, models.ModelVersion, models.ModelVersionNote, time.Since(started)); err != nil {
		logger.WithError(err).Warn("Failed to write train audit record")
	}

	fmt.Printf("Trained %d models into %s\n", len(countries), cfg.Models.Dir)
	return nil
}
