// Package ingest normalizes raw invoice source files into a single ordered
// record set. Source files are JSON arrays of invoice objects whose key
// spelling drifted across export batches; every recognized spelling is mapped
// onto the canonical schema before anything downstream sees the data.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aavail/revenue-forecast/internal/logging"
	"github.com/aavail/revenue-forecast/internal/models"
)

// ErrDataSource indicates the ingestion directory is missing, empty, or
// contains no recognized source files. Fatal to the calling operation;
// never retried here.
var ErrDataSource = errors.New("invoice data source unavailable")

// Key aliases observed across export batches. First match wins.
var (
	countryKeys     = []string{"country", "Country"}
	customerKeys    = []string{"customer_id", "CustomerID", "customer id"}
	invoiceKeys     = []string{"invoice", "Invoice", "invoice_id"}
	priceKeys       = []string{"price", "total_price", "Price", "TotalPrice"}
	streamKeys      = []string{"stream_id", "StreamID", "stream id"}
	timesViewedKeys = []string{"times_viewed", "TimesViewed", "times viewed"}
	yearKeys        = []string{"year", "Year"}
	monthKeys       = []string{"month", "Month"}
	dayKeys         = []string{"day", "Day"}
)

// Normalizer reads invoice source directories.
type Normalizer struct {
	log logging.Logger
}

// NewNormalizer creates a normalizer logging through the given logger.
func NewNormalizer(log logging.Logger) *Normalizer {
	return &Normalizer{log: log.WithComponent("ingest")}
}

// LoadDirectory reads every *.json file in dir, maps each file's records onto
// the canonical schema, derives the calendar date, and returns all records
// sorted by date ascending.
func (n *Normalizer) LoadDirectory(dir string) ([]models.InvoiceRecord, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: directory %q does not exist", ErrDataSource, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %q: %v", ErrDataSource, dir, err)
	}

	var records []models.InvoiceRecord
	sources := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		fileRecords, err := readSourceFile(path)
		if err != nil {
			return nil, fmt.Errorf("source file %s: %w", entry.Name(), err)
		}
		sources++
		records = append(records, fileRecords...)
	}

	if sources == 0 {
		return nil, fmt.Errorf("%w: no recognized source files in %q", ErrDataSource, dir)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	n.log.WithFields(map[string]interface{}{
		"files":   sources,
		"records": len(records),
	}).Info("Loaded invoice records")
	return records, nil
}

func readSourceFile(path string) ([]models.InvoiceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()

	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding: %w", err)
	}

	records := make([]models.InvoiceRecord, 0, len(raw))
	for i, obj := range raw {
		rec, err := normalizeRecord(obj)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func normalizeRecord(obj map[string]any) (models.InvoiceRecord, error) {
	price, err := decimalField(obj, priceKeys)
	if err != nil {
		return models.InvoiceRecord{}, err
	}
	year, err := intField(obj, yearKeys)
	if err != nil {
		return models.InvoiceRecord{}, err
	}
	month, err := intField(obj, monthKeys)
	if err != nil {
		return models.InvoiceRecord{}, err
	}
	day, err := intField(obj, dayKeys)
	if err != nil {
		return models.InvoiceRecord{}, err
	}

	// times_viewed is absent from some early exports; default zero.
	timesViewed, err := intField(obj, timesViewedKeys)
	if err != nil {
		timesViewed = 0
	}

	return models.InvoiceRecord{
		Country:     stringField(obj, countryKeys),
		CustomerID:  stringField(obj, customerKeys),
		Invoice:     stringField(obj, invoiceKeys),
		Price:       price,
		StreamID:    stringField(obj, streamKeys),
		TimesViewed: timesViewed,
		Year:        year,
		Month:       month,
		Day:         day,
		Date:        time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC),
	}, nil
}

func lookup(obj map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(obj map[string]any, keys []string) string {
	v, ok := lookup(obj, keys)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		// Some exports encode ids as floats ("12431.0"); render whole
		// numbers without the fraction.
		if i, err := s.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := s.Float64(); err == nil && f == math.Trunc(f) {
			return strconv.FormatInt(int64(f), 10)
		}
		return s.String()
	default:
		return fmt.Sprintf("%v", s)
	}
}

func intField(obj map[string]any, keys []string) (int, error) {
	v, ok := lookup(obj, keys)
	if !ok {
		return 0, fmt.Errorf("missing field %q", keys[0])
	}
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", keys[0], err)
		}
		return int(f), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", keys[0], err)
		}
		return int(d.IntPart()), nil
	default:
		return 0, fmt.Errorf("field %q has unsupported type %T", keys[0], v)
	}
}

func decimalField(obj map[string]any, keys []string) (decimal.Decimal, error) {
	v, ok := lookup(obj, keys)
	if !ok {
		return decimal.Zero, fmt.Errorf("missing field %q", keys[0])
	}
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %q: %w", keys[0], err)
		}
		return d, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %q: %w", keys[0], err)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("field %q has unsupported type %T", keys[0], v)
	}
}
