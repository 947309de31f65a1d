// Package timeseries turns normalized invoice records into the engineered
// per-country daily feature table used for training and inference.
package timeseries

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aavail/revenue-forecast/internal/logging"
	"github.com/aavail/revenue-forecast/internal/models"
)

// Builder derives the gap-filled, feature-augmented daily revenue table.
type Builder struct {
	log logging.Logger
}

// NewBuilder creates a feature builder logging through the given logger.
func NewBuilder(log logging.Logger) *Builder {
	return &Builder{log: log.WithComponent("timeseries")}
}

// Build aggregates records into per-country daily revenue, gap-fills each
// country's series over its observed [min, max] date range with zero-revenue
// days, computes the trailing-window features and the 30-day forward target,
// and drops every row lacking a full trailing or forward window.
//
// A country whose history is too short to produce a single complete row is
// omitted from the table entirely; that is "no data", not an error.
func (b *Builder) Build(records []models.InvoiceRecord) *models.FeatureTable {
	countries, revenue := aggregateDaily(records)

	table := &models.FeatureTable{}
	for _, country := range countries {
		start, series := gapFill(revenue[country])
		rows := buildCountryRows(country, start, series)
		if len(rows) == 0 {
			b.log.WithCountry(country).Warn("Country history too short for feature windows, dropping")
			continue
		}
		table.Rows = append(table.Rows, rows...)
	}

	b.log.WithFields(map[string]interface{}{
		"countries": len(countries),
		"rows":      len(table.Rows),
	}).Info("Built feature table")
	return table
}

// aggregateDaily sums invoice prices per (country, date). Countries are
// returned in first-encountered order so downstream output is deterministic.
func aggregateDaily(records []models.InvoiceRecord) ([]string, map[string]map[time.Time]decimal.Decimal) {
	var countries []string
	revenue := make(map[string]map[time.Time]decimal.Decimal)
	for _, rec := range records {
		days, ok := revenue[rec.Country]
		if !ok {
			days = make(map[time.Time]decimal.Decimal)
			revenue[rec.Country] = days
			countries = append(countries, rec.Country)
		}
		days[rec.Date] = days[rec.Date].Add(rec.Price)
	}
	return countries, revenue
}

// gapFill reindexes a country's daily revenue onto the full calendar range
// between its first and last observed dates. Days with no invoices become
// zero revenue, not missing data; every rolling statistic depends on that.
func gapFill(days map[time.Time]decimal.Decimal) (time.Time, []float64) {
	if len(days) == 0 {
		return time.Time{}, nil
	}

	var minDate, maxDate time.Time
	first := true
	for d := range days {
		if first {
			minDate, maxDate = d, d
			first = false
			continue
		}
		if d.Before(minDate) {
			minDate = d
		}
		if d.After(maxDate) {
			maxDate = d
		}
	}

	n := int(maxDate.Sub(minDate).Hours()/24) + 1
	series := make([]float64, n)
	for d, price := range days {
		idx := int(d.Sub(minDate).Hours() / 24)
		series[idx] = price.InexactFloat64()
	}
	return minDate, series
}

// buildCountryRows computes the feature rows for one country's gap-filled
// series starting at date start.
//
// Trailing sums cover the w days strictly before the row's date. The
// derivative feature is the mean of the lag-1 differences of the day-shifted
// series over the same window; its first defined row is one day later than
// the plain sum because each difference consumes an extra day of history.
// That definition is frozen: it is what the persisted models were trained on.
func buildCountryRows(country string, start time.Time, series []float64) []models.FeatureRow {
	n := len(series)
	maxWindow := models.TrailingWindows[len(models.TrailingWindows)-1]

	var rows []models.FeatureRow
	for i := maxWindow + 1; i+models.TargetHorizonDays < n; i++ {
		date := start.AddDate(0, 0, i)
		row := models.FeatureRow{
			Date:    date,
			Country: country,
			Price:   series[i],
			Month:   int(date.Month()),
			Day:     date.Day(),
		}

		sums, ders := trailingStats(series, i)
		row.Price7d, row.Price14d, row.Price21d, row.Price28d = sums[0], sums[1], sums[2], sums[3]
		row.Price7dDer, row.Price14dDer, row.Price21dDer, row.Price28dDer = ders[0], ders[1], ders[2], ders[3]

		var target float64
		for k := i + 1; k <= i+models.TargetHorizonDays; k++ {
			target += series[k]
		}
		row.Target = target

		rows = append(rows, row)
	}
	return rows
}

// trailingStats returns the trailing sums and mean lag-1 differences for all
// configured windows at row index i. Callers guarantee i is past the warmup.
func trailingStats(series []float64, i int) (sums [4]float64, ders [4]float64) {
	for wi, w := range models.TrailingWindows {
		var sum, diffSum float64
		for k := i - w; k <= i-1; k++ {
			sum += series[k]
			diffSum += series[k] - series[k-1]
		}
		sums[wi] = sum
		ders[wi] = diffSum / float64(w)
	}
	return sums, ders
}
