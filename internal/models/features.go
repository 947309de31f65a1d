package models

import "time"

// TrailingWindows are the lookback window sizes, in days, used for the
// rolling revenue features. Order is significant: it fixes the layout of
// the feature vector fed to the regressor.
var TrailingWindows = [4]int{7, 14, 21, 28}

// TargetHorizonDays is the length of the forward window summed into the
// training target.
const TargetHorizonDays = 30

// FeatureRow is one engineered (country, date) observation. Revenue sums
// cover the window days strictly before Date; derivatives are the mean of
// lag-1 differences over the same window; Target sums the revenue of the
// TargetHorizonDays days strictly after Date.
type FeatureRow struct {
	Date    time.Time `json:"date"`
	Country string    `json:"country"`
	// Price is the gap-filled revenue of Date itself. Excluded from the
	// feature vector along with Date, Country and Target.
	Price float64 `json:"price"`

	Price7d  float64 `json:"price_7d"`
	Price14d float64 `json:"price_14d"`
	Price21d float64 `json:"price_21d"`
	Price28d float64 `json:"price_28d"`

	Price7dDer  float64 `json:"price_7d_der"`
	Price14dDer float64 `json:"price_14d_der"`
	Price21dDer float64 `json:"price_21d_der"`
	Price28dDer float64 `json:"price_28d_der"`

	Month int `json:"month"`
	Day   int `json:"day"`

	Target float64 `json:"target"`
}

// FeatureNames lists the predictor columns in the exact order produced by
// FeatureVector. Persisted inside model artifacts so a loaded model can
// verify it is fed the layout it was trained on.
func FeatureNames() []string {
	return []string{
		"price_7d", "price_14d", "price_21d", "price_28d",
		"price_7d_der", "price_14d_der", "price_21d_der", "price_28d_der",
		"month", "day",
	}
}

// FeatureVector returns the predictor values of the row, in FeatureNames order.
func (r FeatureRow) FeatureVector() []float64 {
	return []float64{
		r.Price7d, r.Price14d, r.Price21d, r.Price28d,
		r.Price7dDer, r.Price14dDer, r.Price21dDer, r.Price28dDer,
		float64(r.Month), float64(r.Day),
	}
}

// FeatureTable is the engineered dataset across all retained countries,
// ordered by country first appearance and date ascending within a country.
type FeatureTable struct {
	Rows []FeatureRow `json:"rows"`
}

// Countries returns the distinct countries of the table in first-encountered
// order. That order is the tie-break authority for top-N selection.
func (t *FeatureTable) Countries() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.Rows {
		if !seen[r.Country] {
			seen[r.Country] = true
			out = append(out, r.Country)
		}
	}
	return out
}

// HasCountry reports whether any row belongs to the given country.
func (t *FeatureTable) HasCountry(country string) bool {
	for _, r := range t.Rows {
		if r.Country == country {
			return true
		}
	}
	return false
}

// RowAt returns the row for (country, date) if one survived feature
// engineering. Dates inside the warmup or forward-target windows have no row.
func (t *FeatureTable) RowAt(country string, date time.Time) (FeatureRow, bool) {
	y, m, d := date.Date()
	for _, r := range t.Rows {
		ry, rm, rd := r.Date.Date()
		if r.Country == country && ry == y && rm == m && rd == d {
			return r, true
		}
	}
	return FeatureRow{}, false
}

// CountryRows returns the subset of rows belonging to the given country,
// preserving date order.
func (t *FeatureTable) CountryRows(country string) []FeatureRow {
	var out []FeatureRow
	for _, r := range t.Rows {
		if r.Country == country {
			out = append(out, r)
		}
	}
	return out
}
