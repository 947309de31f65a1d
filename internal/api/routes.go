package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aavail/revenue-forecast/internal/api/handlers"
	"github.com/aavail/revenue-forecast/internal/config"
	"github.com/aavail/revenue-forecast/internal/logging"
)

// Version is the application version reported by the health endpoint.
const Version = "1.0.0"

// SetupRoutes configures all the HTTP routes for the application.
//
// The train and predict envelopes follow the contract of the previous
// deployment; see the forecast handler for details.
func SetupRoutes(router *gin.Engine, cfg *config.Config, svc handlers.ForecastService, log logging.Logger) {
	healthHandler := handlers.NewHealthHandler(Version)
	forecastHandler := handlers.NewForecastHandler(svc, cfg.Data.TrainDir, log)
	logsHandler := handlers.NewLogsHandler(cfg.Audit.Dir, log)

	router.GET("/health", healthHandler.Health)
	router.GET("/ping", healthHandler.Ping)
	router.POST("/ping", healthHandler.Ping)

	router.POST("/predict", forecastHandler.Predict)
	router.POST("/train", forecastHandler.Train)

	router.GET("/logs/:filename", logsHandler.Get)
}
