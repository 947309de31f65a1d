// Package audit appends flat train/predict records to monthly CSV files.
// The core supplies the fields; downstream tooling owns the file format
// beyond the column set recorded here.
package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

var trainHeader = []string{"unique_id", "timestamp", "x_shape", "model_version", "model_version_note", "runtime"}

var predictHeader = []string{"unique_id", "timestamp", "country", "y_pred", "model_version", "model_version_note", "runtime"}

// Writer appends audit records under a single directory. Safe for concurrent
// use; appends are serialized.
type Writer struct {
	dir string
	mu  sync.Mutex
}

// NewWriter creates an audit writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// RecordTrain appends one training audit record. shape describes the trained
// design matrix, e.g. "(1205, 10)".
func (w *Writer) RecordTrain(shape string, modelVersion string, note string, runtime time.Duration) error {
	file := fmt.Sprintf("train-%d-%d.csv", time.Now().Year(), int(time.Now().Month()))
	return w.append(file, trainHeader, []string{
		uuid.NewString(),
		time.Now().UTC().Format(time.RFC3339),
		shape,
		modelVersion,
		note,
		runtime.String(),
	})
}

// RecordPredict appends one prediction audit record.
func (w *Writer) RecordPredict(country string, yPred float64, modelVersion string, note string, runtime time.Duration) error {
	file := fmt.Sprintf("predict-%d-%d.csv", time.Now().Year(), int(time.Now().Month()))
	return w.append(file, predictHeader, []string{
		uuid.NewString(),
		time.Now().UTC().Format(time.RFC3339),
		country,
		strconv.FormatFloat(yPred, 'f', -1, 64),
		modelVersion,
		note,
		runtime.String(),
	})
}

// Dir returns the audit directory, used by the log-serving endpoint.
func (w *Writer) Dir() string {
	return w.dir
}

func (w *Writer) append(name string, header []string, record []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating audit directory: %w", err)
	}

	path := filepath.Join(w.dir, name)
	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log %s: %w", name, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if writeHeader {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("writing audit header: %w", err)
		}
	}
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("writing audit record: %w", err)
	}
	cw.Flush()
	return cw.Error()
}
