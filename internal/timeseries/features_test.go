package timeseries

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aavail/revenue-forecast/internal/logging"
	"github.com/aavail/revenue-forecast/internal/models"
)

var testStart = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

func testLogger() logging.Logger {
	return logging.NewStandardLogger("error", "production")
}

// constantRecords builds one invoice per day at the given price.
func constantRecords(country string, days int, price float64) []models.InvoiceRecord {
	records := make([]models.InvoiceRecord, 0, days)
	for i := 0; i < days; i++ {
		date := testStart.AddDate(0, 0, i)
		records = append(records, models.InvoiceRecord{
			Country: country,
			Invoice: "INV",
			Price:   decimal.NewFromFloat(price),
			Year:    date.Year(),
			Month:   int(date.Month()),
			Day:     date.Day(),
			Date:    date,
		})
	}
	return records
}

func TestBuildConstantSeries(t *testing.T) {
	builder := NewBuilder(testLogger())
	table := builder.Build(constantRecords("Alpha", 70, 10))

	// Warmup consumes 29 days (28-day window plus one day for the
	// derivative's extra lag); the forward target consumes the last 30.
	require.Len(t, table.Rows, 70-29-30-1+1)

	first := table.Rows[0]
	assert.Equal(t, testStart.AddDate(0, 0, 29), first.Date)
	assert.Equal(t, "Alpha", first.Country)
	assert.Equal(t, 10.0, first.Price)

	for _, row := range table.Rows {
		assert.InDelta(t, 70.0, row.Price7d, 1e-9)
		assert.InDelta(t, 140.0, row.Price14d, 1e-9)
		assert.InDelta(t, 210.0, row.Price21d, 1e-9)
		assert.InDelta(t, 280.0, row.Price28d, 1e-9)
		// Constant series: every lag-1 difference is zero.
		assert.Zero(t, row.Price7dDer)
		assert.Zero(t, row.Price28dDer)
		assert.InDelta(t, 300.0, row.Target, 1e-9)
		assert.Equal(t, int(row.Date.Month()), row.Month)
		assert.Equal(t, row.Date.Day(), row.Day)
	}
}

func TestBuildMinimumHistoryYieldsSingleRow(t *testing.T) {
	builder := NewBuilder(testLogger())
	table := builder.Build(constantRecords("Alpha", 60, 1))

	require.Len(t, table.Rows, 1)
	row := table.Rows[0]
	assert.InDelta(t, 7.0, row.Price7d, 1e-9)
	assert.InDelta(t, 30.0, row.Target, 1e-9)
}

func TestBuildShortCountryDropped(t *testing.T) {
	builder := NewBuilder(testLogger())

	records := constantRecords("Alpha", 70, 10)
	records = append(records, constantRecords("Tiny", 40, 99)...)
	table := builder.Build(records)

	assert.True(t, table.HasCountry("Alpha"))
	// Too short for a single complete row: absent, not an error.
	assert.False(t, table.HasCountry("Tiny"))
}

func TestBuildIsIdempotent(t *testing.T) {
	builder := NewBuilder(testLogger())
	records := constantRecords("Alpha", 70, 10)
	records = append(records, constantRecords("Beta", 70, 20)...)

	first := builder.Build(records)
	second := builder.Build(records)
	assert.Equal(t, first, second)
}

func TestGapFillInsertsZeroDays(t *testing.T) {
	days := map[time.Time]decimal.Decimal{
		testStart:                decimal.NewFromInt(5),
		testStart.AddDate(0, 0, 2): decimal.NewFromInt(7),
	}

	start, series := gapFill(days)
	assert.Equal(t, testStart, start)
	require.Len(t, series, 3)
	assert.Equal(t, 5.0, series[0])
	assert.Equal(t, 0.0, series[1])
	assert.Equal(t, 7.0, series[2])
}

func TestTrailingWindowExcludesCurrentDay(t *testing.T) {
	// Constant 1 everywhere except a spike of 100 on day 35.
	series := make([]float64, 80)
	for i := range series {
		series[i] = 1
	}
	series[35] = 100

	rows := buildCountryRows("Alpha", testStart, series)
	require.NotEmpty(t, rows)

	byOffset := func(offset int) models.FeatureRow {
		for _, r := range rows {
			if r.Date.Equal(testStart.AddDate(0, 0, offset)) {
				return r
			}
		}
		t.Fatalf("no row at offset %d", offset)
		return models.FeatureRow{}
	}

	// The spike day itself only sees history: its own revenue must not leak
	// into the trailing sum.
	spikeRow := byOffset(35)
	assert.InDelta(t, 7.0, spikeRow.Price7d, 1e-9)

	// The day after the spike includes it.
	afterRow := byOffset(36)
	assert.InDelta(t, 7.0+99.0, afterRow.Price7d, 1e-9)

	// Seven days later it has rolled out of the 7-day window again.
	laterRow := byOffset(43)
	assert.InDelta(t, 7.0, laterRow.Price7d, 1e-9)
}

func TestTargetSumsForwardWindowOnly(t *testing.T) {
	// Constant 1 with a spike of 50 on day 45; rows whose forward window
	// covers day 45 see it in the target, others do not.
	series := make([]float64, 90)
	for i := range series {
		series[i] = 1
	}
	series[45] = 50

	rows := buildCountryRows("Alpha", testStart, series)
	require.NotEmpty(t, rows)

	for _, r := range rows {
		offset := int(r.Date.Sub(testStart).Hours() / 24)
		expected := 30.0
		if offset >= 15 && offset <= 44 {
			expected = 30.0 + 49.0
		}
		assert.InDeltaf(t, expected, r.Target, 1e-9, "offset %d", offset)
	}
}

func TestDerivativeMatchesMeanOfLagOneDiffs(t *testing.T) {
	// Linearly increasing series: every lag-1 diff is 2, so each
	// derivative feature is exactly 2 regardless of window.
	series := make([]float64, 90)
	for i := range series {
		series[i] = float64(2 * i)
	}

	rows := buildCountryRows("Alpha", testStart, series)
	require.NotEmpty(t, rows)
	for _, r := range rows {
		assert.InDelta(t, 2.0, r.Price7dDer, 1e-9)
		assert.InDelta(t, 2.0, r.Price14dDer, 1e-9)
		assert.InDelta(t, 2.0, r.Price21dDer, 1e-9)
		assert.InDelta(t, 2.0, r.Price28dDer, 1e-9)
	}
}

func TestSelectTopCountries(t *testing.T) {
	row := func(country string, price float64) models.FeatureRow {
		return models.FeatureRow{Country: country, Price: price, Date: testStart}
	}
	table := &models.FeatureTable{Rows: []models.FeatureRow{
		row("A", 100),
		row("B", 50),
		row("C", 100),
	}}

	top := SelectTopCountries(table, 2)
	countries := top.Countries()
	require.Len(t, countries, 2)
	// Tie between A and C resolves to the first-encountered country, and a
	// strictly lower total can never displace a higher one.
	assert.Equal(t, []string{"A", "C"}, countries)
}

func TestSelectTopCountriesFewerThanN(t *testing.T) {
	table := &models.FeatureTable{Rows: []models.FeatureRow{
		{Country: "A", Price: 1, Date: testStart},
		{Country: "B", Price: 2, Date: testStart},
	}}

	top := SelectTopCountries(table, 10)
	assert.Len(t, top.Countries(), 2)
}

func TestSelectTopCountriesSumsAcrossRows(t *testing.T) {
	table := &models.FeatureTable{Rows: []models.FeatureRow{
		{Country: "A", Price: 10, Date: testStart},
		{Country: "B", Price: 6, Date: testStart},
		{Country: "A", Price: 1, Date: testStart.AddDate(0, 0, 1)},
		{Country: "B", Price: 6, Date: testStart.AddDate(0, 0, 1)},
	}}

	top := SelectTopCountries(table, 1)
	assert.Equal(t, []string{"B"}, top.Countries())
}
