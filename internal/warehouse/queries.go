package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/models"
)

// CompletenessEntry is one date's row count against the expected
// U*(U-1) directed pairs. A date with missing source currencies shows
// fewer rows without any pipeline failure; this report makes the gap
// visible.
type CompletenessEntry struct {
	Date     time.Time `json:"rate_date"`
	RowCount int       `json:"row_count"`
	Expected int       `json:"expected"`
	Complete bool      `json:"complete"`
}

// CountDailyRates returns the number of persisted cross-rate rows.
func (s *Sync) CountDailyRates(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.CrossRate{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count daily rates: %w", err)
	}
	return count, nil
}

// CountYtdMetrics returns the number of persisted YTD rows.
func (s *Sync) CountYtdMetrics(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.YtdMetric{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count ytd metrics: %w", err)
	}
	return count, nil
}

// CompletenessReport lists, per date in [start, end], how many cross-rate
// rows exist versus the universe's expected pair count, oldest first.
func (s *Sync) CompletenessReport(ctx context.Context, universe models.Universe, start, end time.Time) ([]CompletenessEntry, error) {
	type dateCount struct {
		RateDate time.Time
		RowCount int
	}

	var counts []dateCount
	err := s.db.WithContext(ctx).
		Model(&models.CrossRate{}).
		Select("rate_date, COUNT(*) AS row_count").
		Where("rate_date >= ? AND rate_date <= ?", models.DateOnly(start), models.DateOnly(end)).
		Group("rate_date").
		Order("rate_date").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to build completeness report: %w", err)
	}

	expected := universe.PairCount()
	report := make([]CompletenessEntry, 0, len(counts))
	for _, c := range counts {
		report = append(report, CompletenessEntry{
			Date:     models.DateOnly(c.RateDate),
			RowCount: c.RowCount,
			Expected: expected,
			Complete: c.RowCount == expected,
		})
	}
	return report, nil
}

// LatestRates returns every cross rate for the most recent date in the
// warehouse, ordered by pair. An empty warehouse yields an empty slice.
func (s *Sync) LatestRates(ctx context.Context) ([]models.CrossRate, error) {
	var latest []models.CrossRate
	err := s.db.WithContext(ctx).
		Where("rate_date = (?)", s.db.Model(&models.CrossRate{}).Select("MAX(rate_date)")).
		Order("base_currency, quote_currency").
		Find(&latest).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get latest rates: %w", err)
	}
	return latest, nil
}

// PairHistory returns the persisted cross rates for one directed pair in
// [start, end], oldest first.
func (s *Sync) PairHistory(ctx context.Context, base, quote models.Currency, start, end time.Time) ([]models.CrossRate, error) {
	var rates []models.CrossRate
	err := s.db.WithContext(ctx).
		Where("base_currency = ? AND quote_currency = ?", base, quote).
		Where("rate_date >= ? AND rate_date <= ?", models.DateOnly(start), models.DateOnly(end)).
		Order("rate_date").
		Find(&rates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get pair history: %w", err)
	}
	return rates, nil
}

// RecentRuns returns the newest execution-log rows, most recent first.
func (s *Sync) RecentRuns(ctx context.Context, limit int) ([]models.StepExecution, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []models.StepExecution
	err := s.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent runs: %w", err)
	}
	return runs, nil
}
