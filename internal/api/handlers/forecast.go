package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aavail/revenue-forecast/internal/logging"
	"github.com/aavail/revenue-forecast/internal/models"
	"github.com/aavail/revenue-forecast/internal/registry"
)

// ForecastService defines the forecasting operations needed by the HTTP layer.
type ForecastService interface {
	// TrainFromDir ingests a source directory and trains every country's model.
	TrainFromDir(dir string) (map[string]*registry.Model, error)
	// PredictMany predicts for several countries with per-key failures.
	PredictMany(countries []string, date time.Time) (map[string]models.PredictionOutcome, error)
}

// ForecastHandler handles the train and predict API endpoints.
//
// The response envelopes are a compatibility contract with the previous
// deployment: precondition failures answer an empty JSON array (predict) or
// false (train) with status 200, not an HTTP error.
type ForecastHandler struct {
	svc      ForecastService
	trainDir string
	log      logging.Logger
}

// NewForecastHandler creates a new forecast handler. trainDir is the source
// directory used by both training and prediction.
func NewForecastHandler(svc ForecastService, trainDir string, log logging.Logger) *ForecastHandler {
	return &ForecastHandler{
		svc:      svc,
		trainDir: trainDir,
		log:      log.WithComponent("api"),
	}
}

// PredictRequest is the body of the predict endpoint.
type PredictRequest struct {
	Query PredictQuery `json:"query"`
	// Type must be "dict"; other query encodings were never implemented.
	Type string `json:"type"`
	Mode string `json:"mode"`
}

// PredictQuery names the country and date to predict for. Country may be a
// comma-separated list or the sentinel "all".
type PredictQuery struct {
	Country string `json:"country"`
	Date    string `json:"date"`
}

// Predict serves revenue predictions for one or more countries.
func (h *ForecastHandler) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.WithError(err).Warn("Predict request without valid body")
		c.JSON(http.StatusOK, []any{})
		return
	}

	if req.Query.Country == "" || req.Query.Date == "" {
		h.log.Warn("Predict request missing country or date")
		c.JSON(http.StatusOK, []any{})
		return
	}

	if req.Type != "" && req.Type != "dict" {
		h.log.Warn("Predict request with unimplemented query type %q", req.Type)
		c.JSON(http.StatusOK, []any{})
		return
	}

	date, err := time.Parse("2006-01-02", req.Query.Date)
	if err != nil {
		h.log.WithError(err).Warn("Predict request with unparseable date")
		c.JSON(http.StatusOK, []any{})
		return
	}

	var countries []string
	if req.Query.Country == "all" {
		countries = []string{"all"}
	} else {
		for _, part := range strings.Split(req.Query.Country, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				countries = append(countries, trimmed)
			}
		}
	}

	outcomes, err := h.svc.PredictMany(countries, date)
	if err != nil {
		h.log.WithError(err).Error("Prediction failed")
		c.JSON(http.StatusOK, []any{})
		return
	}

	response := make(map[string]any, len(outcomes))
	failures := 0
	for country, outcome := range outcomes {
		if outcome.Error != "" {
			failures++
			response[country] = gin.H{"Country": country, "error": outcome.Error}
			continue
		}
		response[country] = outcome.Prediction
	}

	// All keys failing is indistinguishable from a bad query to the caller.
	if failures == len(outcomes) {
		c.JSON(http.StatusOK, []any{})
		return
	}

	c.JSON(http.StatusOK, response)
}

// TrainRequest is the body of the train endpoint.
type TrainRequest struct {
	Mode string `json:"mode"`
}

// Train re-derives the feature table from the source directory and retrains
// every country's model, overwriting the persisted artifacts.
func (h *ForecastHandler) Train(c *gin.Context) {
	var req TrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.WithError(err).Warn("Train request without valid body")
		c.JSON(http.StatusOK, false)
		return
	}

	trained, err := h.svc.TrainFromDir(h.trainDir)
	if err != nil {
		h.log.WithError(err).Error("Training failed")
		c.JSON(http.StatusOK, false)
		return
	}

	h.log.Info("Training complete for %d countries", len(trained))
	c.JSON(http.StatusOK, true)
}
