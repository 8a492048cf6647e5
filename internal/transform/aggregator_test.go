package transform

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/models"
)

func cross(date string, base, quote models.Currency, rate string) models.CrossRate {
	return models.CrossRate{
		Date:          day(date),
		BaseCurrency:  base,
		QuoteCurrency: quote,
		Rate:          decimal.RequireFromString(rate),
		Source:        models.RateSourceDerived,
	}
}

func findMetric(t *testing.T, metrics []models.YtdMetric, date string, base, quote models.Currency) models.YtdMetric {
	t.Helper()
	for _, m := range metrics {
		if m.Date.Equal(day(date)) && m.BaseCurrency == base && m.QuoteCurrency == quote {
			return m
		}
	}
	t.Fatalf("no ytd metric for %s/%s on %s", base, quote, date)
	return models.YtdMetric{}
}

func TestAggregateYTDFirstTradingDay(t *testing.T) {
	metrics, err := AggregateYTD([]models.CrossRate{
		cross("2024-01-01", models.CurrencyNOK, models.CurrencySEK, "0.98245614"),
	}, DateWindow{})
	require.NoError(t, err)
	require.Len(t, metrics, 1)

	m := metrics[0]
	assert.Equal(t, "0.98245614", m.AvgRate.String())
	assert.Equal(t, "0.98245614", m.MinRate.String())
	assert.Equal(t, "0.98245614", m.MaxRate.String())
	assert.Equal(t, "0.98245614", m.FirstRate.String())
	assert.Equal(t, "0.98245614", m.LastRate.String())
	assert.True(t, m.ChangePct.IsZero())
	assert.Equal(t, 1, m.DaysCount)
	assert.True(t, m.Variance.IsZero())
	assert.True(t, m.StdDev.IsZero())
}

func TestAggregateYTDSecondDay(t *testing.T) {
	metrics, err := AggregateYTD([]models.CrossRate{
		cross("2024-01-01", models.CurrencyNOK, models.CurrencySEK, "0.98245614"),
		cross("2024-01-02", models.CurrencyNOK, models.CurrencySEK, "0.98260870"),
	}, DateWindow{})
	require.NoError(t, err)
	require.Len(t, metrics, 2)

	m := findMetric(t, metrics, "2024-01-02", models.CurrencyNOK, models.CurrencySEK)
	assert.Equal(t, "0.98253242", m.AvgRate.String(), "avg = mean of the two rates")
	assert.Equal(t, "0.98245614", m.MinRate.String())
	assert.Equal(t, "0.9826087", m.MaxRate.String())
	assert.Equal(t, "0.98245614", m.FirstRate.String())
	assert.Equal(t, "0.9826087", m.LastRate.String())
	assert.Equal(t, 2, m.DaysCount)
	assert.Equal(t, "0.0155", m.ChangePct.String())

	// Exact moments: variance = ((a-b)/2)^2 = 0.00007628^2.
	assert.Equal(t, "0.00000001", m.Variance.String())
	assert.Equal(t, "0.00007628", m.StdDev.String())
}

func TestAggregateYTDYearBoundaryReset(t *testing.T) {
	metrics, err := AggregateYTD([]models.CrossRate{
		cross("2023-12-29", models.CurrencyNOK, models.CurrencySEK, "2.0"),
		cross("2024-01-02", models.CurrencyNOK, models.CurrencySEK, "3.0"),
	}, DateWindow{})
	require.NoError(t, err)
	require.Len(t, metrics, 2)

	dec := findMetric(t, metrics, "2023-12-29", models.CurrencyNOK, models.CurrencySEK)
	assert.Equal(t, 1, dec.DaysCount)
	assert.Equal(t, "2", dec.FirstRate.String())

	// Nothing from December leaks into January.
	jan := findMetric(t, metrics, "2024-01-02", models.CurrencyNOK, models.CurrencySEK)
	assert.Equal(t, 1, jan.DaysCount)
	assert.Equal(t, "3", jan.FirstRate.String())
	assert.Equal(t, "3", jan.LastRate.String())
	assert.True(t, jan.ChangePct.IsZero())
	assert.True(t, jan.Variance.IsZero())
}

func TestAggregateYTDGapDays(t *testing.T) {
	// A weekend hole: days_count reflects observations, not calendar days.
	metrics, err := AggregateYTD([]models.CrossRate{
		cross("2024-01-05", models.CurrencyNOK, models.CurrencySEK, "0.98"),
		cross("2024-01-08", models.CurrencyNOK, models.CurrencySEK, "0.99"),
	}, DateWindow{})
	require.NoError(t, err)

	m := findMetric(t, metrics, "2024-01-08", models.CurrencyNOK, models.CurrencySEK)
	assert.Equal(t, 2, m.DaysCount)
	assert.Equal(t, "0.98", m.FirstRate.String())
}

func TestAggregateYTDWindowRestriction(t *testing.T) {
	history := []models.CrossRate{
		cross("2024-01-01", models.CurrencyNOK, models.CurrencySEK, "0.98"),
		cross("2024-01-02", models.CurrencyNOK, models.CurrencySEK, "0.99"),
		cross("2024-01-03", models.CurrencyNOK, models.CurrencySEK, "1.00"),
	}

	window := DateWindow{Start: day("2024-01-03"), End: day("2024-01-03")}
	metrics, err := AggregateYTD(history, window)
	require.NoError(t, err)
	require.Len(t, metrics, 1, "only window dates are emitted")

	// The emitted metric still accumulates the pre-window history.
	m := metrics[0]
	assert.True(t, m.Date.Equal(day("2024-01-03")))
	assert.Equal(t, 3, m.DaysCount)
	assert.Equal(t, "0.98", m.FirstRate.String())
	assert.Equal(t, "0.99", m.AvgRate.String())
}

func TestAggregateYTDMultiplePairsIndependent(t *testing.T) {
	metrics, err := AggregateYTD([]models.CrossRate{
		cross("2024-01-01", models.CurrencyNOK, models.CurrencySEK, "0.98"),
		cross("2024-01-01", models.CurrencySEK, models.CurrencyNOK, "1.02"),
		cross("2024-01-02", models.CurrencyNOK, models.CurrencySEK, "0.99"),
	}, DateWindow{})
	require.NoError(t, err)
	require.Len(t, metrics, 3)

	inverse := findMetric(t, metrics, "2024-01-01", models.CurrencySEK, models.CurrencyNOK)
	assert.Equal(t, 1, inverse.DaysCount)
	assert.Equal(t, "1.02", inverse.MaxRate.String())
}

func TestAggregateYTDChangePctFormula(t *testing.T) {
	metrics, err := AggregateYTD([]models.CrossRate{
		cross("2024-01-01", models.CurrencyEUR, models.CurrencyNOK, "10.00"),
		cross("2024-01-02", models.CurrencyEUR, models.CurrencyNOK, "11.00"),
	}, DateWindow{})
	require.NoError(t, err)

	m := findMetric(t, metrics, "2024-01-02", models.CurrencyEUR, models.CurrencyNOK)
	assert.Equal(t, "10", m.ChangePct.String(), "(11-10)/10 x 100")
}

func TestAggregateYTDEmptyInput(t *testing.T) {
	metrics, err := AggregateYTD(nil, DateWindow{})
	require.NoError(t, err)
	assert.Empty(t, metrics)
}

func TestDateWindowContains(t *testing.T) {
	w := DateWindow{Start: day("2024-01-02"), End: day("2024-01-04")}
	assert.False(t, w.Contains(day("2024-01-01")))
	assert.True(t, w.Contains(day("2024-01-02")))
	assert.True(t, w.Contains(day("2024-01-04")))
	assert.False(t, w.Contains(day("2024-01-05")))

	open := DateWindow{}
	assert.True(t, open.Contains(day("1999-12-31")))
}
