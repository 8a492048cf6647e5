package transform

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/models"
)

// DateWindow is an inclusive date range. A zero Start or End leaves that
// side unbounded, so the zero value covers the whole input.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w DateWindow) Contains(t time.Time) bool {
	d := models.DateOnly(t)
	if !w.Start.IsZero() && d.Before(models.DateOnly(w.Start)) {
		return false
	}
	if !w.End.IsZero() && d.After(models.DateOnly(w.End)) {
		return false
	}
	return true
}

type pairKey struct {
	base  models.Currency
	quote models.Currency
}

// ytdAccumulator holds the running state for one (pair, calendar year).
// Variance is derived from sum and sum-of-squares so the series itself
// never has to be retained.
type ytdAccumulator struct {
	year  int
	count int64
	sum   decimal.Decimal
	sumSq decimal.Decimal
	min   decimal.Decimal
	max   decimal.Decimal
	first decimal.Decimal
}

func newYtdAccumulator(year int, rate decimal.Decimal) *ytdAccumulator {
	return &ytdAccumulator{
		year:  year,
		count: 1,
		sum:   rate,
		sumSq: rate.Mul(rate),
		min:   rate,
		max:   rate,
		first: rate,
	}
}

func (a *ytdAccumulator) add(rate decimal.Decimal) {
	a.count++
	a.sum = a.sum.Add(rate)
	a.sumSq = a.sumSq.Add(rate.Mul(rate))
	if rate.LessThan(a.min) {
		a.min = rate
	}
	if rate.GreaterThan(a.max) {
		a.max = rate
	}
}

// AggregateYTD computes one YtdMetric per (date, pair) for every input
// date inside the window. Each pair's rates are scanned chronologically
// with running accumulators that reset at every calendar year boundary,
// so a metric for a date reflects exactly the observations from January 1
// of that date's year through that date. Days without an observation
// simply do not contribute.
//
// The input must contain the year-to-date history for every window date;
// the aggregator never reads the warehouse. Output order is pair, then
// date ascending.
func AggregateYTD(rates []models.CrossRate, window DateWindow) ([]models.YtdMetric, error) {
	groups := make(map[pairKey][]models.CrossRate)
	for _, cr := range rates {
		k := pairKey{base: cr.BaseCurrency, quote: cr.QuoteCurrency}
		groups[k] = append(groups[k], cr)
	}

	keys := make([]pairKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].base != keys[j].base {
			return keys[i].base < keys[j].base
		}
		return keys[i].quote < keys[j].quote
	})

	var metrics []models.YtdMetric
	for _, k := range keys {
		group := groups[k]
		sort.Slice(group, func(i, j int) bool { return group[i].Date.Before(group[j].Date) })

		var acc *ytdAccumulator
		for _, cr := range group {
			d := models.DateOnly(cr.Date)
			if acc == nil || d.Year() != acc.year {
				acc = newYtdAccumulator(d.Year(), cr.Rate)
			} else {
				acc.add(cr.Rate)
			}

			if !window.Contains(d) {
				continue
			}

			m, err := acc.metric(d, k.base, k.quote, cr.Rate)
			if err != nil {
				return nil, err
			}
			metrics = append(metrics, m)
		}
	}

	return metrics, nil
}

// metric materializes the accumulator state as of date, with last being
// that date's rate.
func (a *ytdAccumulator) metric(date time.Time, base, quote models.Currency, last decimal.Decimal) (models.YtdMetric, error) {
	n := decimal.NewFromInt(a.count)
	mean := a.sum.Div(n)

	// Population variance from the moments, clamped against the tiny
	// negative values precision loss can produce.
	variance := a.sumSq.Div(n).Sub(mean.Mul(mean))
	if variance.IsNegative() {
		variance = decimal.Zero
	}

	stdFloat, _ := variance.Float64()
	if math.IsNaN(stdFloat) || math.IsInf(stdFloat, 0) {
		return models.YtdMetric{}, fmt.Errorf("non-finite variance for %s/%s on %s", base, quote, date.Format("2006-01-02"))
	}
	stdDev := decimal.NewFromFloat(math.Sqrt(stdFloat))

	// first is a stored 8-digit rate; a value that rounds to zero there
	// would make the percent change undefined. Positive inputs make this
	// unreachable, so treat it as a computation fault.
	if a.first.RoundBank(models.RateScale).IsZero() {
		return models.YtdMetric{}, fmt.Errorf("zero first rate for %s/%s in %d", base, quote, a.year)
	}
	changePct := last.Sub(a.first).Div(a.first).Mul(decimal.NewFromInt(100))

	return models.YtdMetric{
		Date:          date,
		BaseCurrency:  base,
		QuoteCurrency: quote,
		AvgRate:       mean.RoundBank(models.RateScale),
		MinRate:       a.min,
		MaxRate:       a.max,
		FirstRate:     a.first,
		LastRate:      last,
		ChangePct:     changePct.RoundBank(models.ChangePctScale),
		DaysCount:     int(a.count),
		Variance:      variance.RoundBank(models.RateScale),
		StdDev:        stdDev.RoundBank(models.RateScale),
	}, nil
}
