package timeseries

import (
	"sort"

	"github.com/aavail/revenue-forecast/internal/models"
)

// DefaultTopCountries is the number of countries retained when the
// configuration does not override it.
const DefaultTopCountries = 10

// SelectTopCountries restricts the table to the n countries with the highest
// total revenue. The sort is stable over first-encountered country order, so
// ties resolve deterministically in favor of the earlier country. Fewer than
// n countries is not an error; everything is kept.
func SelectTopCountries(table *models.FeatureTable, n int) *models.FeatureTable {
	if n <= 0 {
		n = DefaultTopCountries
	}

	countries := table.Countries()
	if len(countries) <= n {
		return table
	}

	totals := make(map[string]float64, len(countries))
	for _, r := range table.Rows {
		totals[r.Country] += r.Price
	}

	sort.SliceStable(countries, func(i, j int) bool {
		return totals[countries[i]] > totals[countries[j]]
	})

	keep := make(map[string]bool, n)
	for _, c := range countries[:n] {
		keep[c] = true
	}

	out := &models.FeatureTable{Rows: make([]models.FeatureRow, 0, len(table.Rows))}
	for _, r := range table.Rows {
		if keep[r.Country] {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}
