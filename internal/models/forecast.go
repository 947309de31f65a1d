package models

import "time"

// ModelVersion identifies the artifact format and pipeline revision baked
// into persisted models. Bumped when the feature layout or pipeline changes.
const ModelVersion = "1.0"

// ModelVersionNote is a human-readable note stored alongside audit records.
const ModelVersionNote = "supervised learning model for revenue forecasting"

// Prediction is the outcome of a single (country, date) revenue query.
type Prediction struct {
	Country string `json:"Country"`
	// YPred holds the predicted 30-day revenue. A single-element slice to
	// keep the response envelope of the prior deployment stable.
	YPred []float64 `json:"y_pred"`
}

// PredictionOutcome is one entry of a batch prediction: either a prediction
// or a per-key error, never both. A failed key never aborts its siblings.
type PredictionOutcome struct {
	Prediction *Prediction `json:"prediction,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// TrainReport summarizes one country's training run for callers and logs.
type TrainReport struct {
	Country        string        `json:"country"`
	Rows           int           `json:"rows"`
	Features       int           `json:"features"`
	ValidationRMSE float64       `json:"validation_rmse"`
	Runtime        time.Duration `json:"runtime"`
}
