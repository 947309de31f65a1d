package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aavail/revenue-forecast/internal/logging"
)

// LogsHandler serves audit log files for download.
type LogsHandler struct {
	dir string
	log logging.Logger
}

// NewLogsHandler creates a handler serving files from the audit directory.
func NewLogsHandler(dir string, log logging.Logger) *LogsHandler {
	return &LogsHandler{dir: dir, log: log.WithComponent("api")}
}

// Get streams one audit log file. Requests for anything that is not an audit
// CSV, or for a missing file, answer an empty array like the predict contract.
func (h *LogsHandler) Get(c *gin.Context) {
	// Base strips any path traversal attempt.
	name := filepath.Base(c.Param("filename"))

	if !strings.HasSuffix(name, ".csv") ||
		!(strings.HasPrefix(name, "train-") || strings.HasPrefix(name, "predict-")) {
		h.log.Warn("Log request for non-log file %q", name)
		c.JSON(http.StatusOK, []any{})
		return
	}

	path := filepath.Join(h.dir, name)
	if _, err := os.Stat(path); err != nil {
		h.log.Warn("Log file %q not found", name)
		c.JSON(http.StatusOK, []any{})
		return
	}

	c.FileAttachment(path, name)
}
