package transform

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/models"
)

// IntegrityError reports a malformed source observation. The affected
// date is dropped from the expansion; other dates are unaffected.
type IntegrityError struct {
	Date     time.Time
	Currency models.Currency
	Rate     decimal.Decimal
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("non-positive rate %s for %s on %s",
		e.Rate.String(), e.Currency, e.Date.Format("2006-01-02"))
}

// Gap records a date whose source feed was missing one or more universe
// currencies. Pairs involving the missing currencies are omitted, so the
// date's row count falls short of U*(U-1).
type Gap struct {
	Date    time.Time
	Missing []models.Currency
}

// ExpandResult carries the expanded rates together with the per-date
// problems encountered along the way.
type ExpandResult struct {
	Rates     []models.CrossRate
	Gaps      []Gap
	Integrity []*IntegrityError
}

// ExpandCrossPairs derives every directed pair rate for every date in the
// source feed by triangulating through the reference currency:
//
//	rate(base, quote) = rateVsRef(quote) / rateVsRef(base)
//
// with the reference currency fixed at 1.0. Only the final ratio is
// rounded (half-even, 8 digits); intermediate terms keep full precision.
//
// A date missing a universe currency loses the pairs involving it and is
// reported as a Gap. A date carrying a non-positive rate is dropped
// entirely and reported as an IntegrityError. The function is pure and
// its output order is deterministic: date ascending, then base, then
// quote in universe order.
func ExpandCrossPairs(observations []models.RateObservation, universe models.Universe) ExpandResult {
	byDate := make(map[time.Time]map[models.Currency]decimal.Decimal)
	for i := range observations {
		obs := &observations[i]
		if !universe.Contains(obs.QuoteCurrency) {
			continue
		}
		d := models.DateOnly(obs.Date)
		if byDate[d] == nil {
			byDate[d] = make(map[models.Currency]decimal.Decimal)
		}
		byDate[d][obs.QuoteCurrency] = obs.Rate
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	one := decimal.NewFromInt(1)
	currencies := universe.Currencies()
	result := ExpandResult{}

	for _, d := range dates {
		rates := byDate[d]
		if universe.Contains(models.ReferenceCurrency) {
			rates[models.ReferenceCurrency] = one
		}

		if bad := findNonPositive(d, rates); bad != nil {
			result.Integrity = append(result.Integrity, bad)
			continue
		}

		var missing []models.Currency
		for _, c := range currencies {
			if _, ok := rates[c]; !ok {
				missing = append(missing, c)
			}
		}
		if len(missing) > 0 {
			result.Gaps = append(result.Gaps, Gap{Date: d, Missing: missing})
		}

		for _, base := range currencies {
			baseRate, ok := rates[base]
			if !ok {
				continue
			}
			for _, quote := range currencies {
				if base == quote {
					continue
				}
				quoteRate, ok := rates[quote]
				if !ok {
					continue
				}
				result.Rates = append(result.Rates, models.CrossRate{
					Date:          d,
					BaseCurrency:  base,
					QuoteCurrency: quote,
					Rate:          quoteRate.Div(baseRate).RoundBank(models.RateScale),
					Source:        models.RateSourceDerived,
				})
			}
		}
	}

	return result
}

func findNonPositive(date time.Time, rates map[models.Currency]decimal.Decimal) *IntegrityError {
	currencies := make([]models.Currency, 0, len(rates))
	for c := range rates {
		currencies = append(currencies, c)
	}
	sort.Slice(currencies, func(i, j int) bool { return currencies[i] < currencies[j] })

	for _, c := range currencies {
		if !rates[c].IsPositive() {
			return &IntegrityError{Date: date, Currency: c, Rate: rates[c]}
		}
	}
	return nil
}
