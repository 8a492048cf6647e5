package warehouse

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/db"
	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/models"
)

// DefaultChunkSize bounds the rows per insert statement so a large run
// does not turn into one unbounded batch.
const DefaultChunkSize = 500

// Sync applies a run's outputs to the warehouse with idempotent
// semantics: cross rates are upserted, YTD metrics are replaced for the
// exact dates recomputed, and every step leaves an append-only audit row.
type Sync struct {
	db        *db.DB
	chunkSize int
}

// NewSync creates a warehouse sync. chunkSize <= 0 selects the default.
func NewSync(database *db.DB, chunkSize int) *Sync {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Sync{db: database, chunkSize: chunkSize}
}

// pairConflictTarget is the persisted uniqueness key shared by both fact
// tables.
var pairConflictTarget = []clause.Column{
	{Name: "rate_date"},
	{Name: "base_currency"},
	{Name: "quote_currency"},
}

// UpsertCrossRates writes cross rates keyed by (date, base, quote):
// insert if absent, overwrite if present, incoming value authoritative.
// Re-running an overlapping date range therefore never duplicates rows.
// Each chunk commits in its own transaction; a chunk failure aborts the
// rest of the batch (re-invocation is safe because of the upsert).
func (s *Sync) UpsertCrossRates(ctx context.Context, rates []models.CrossRate) (int, error) {
	now := time.Now().UTC()
	for i := range rates {
		if err := rates[i].Validate(); err != nil {
			return 0, fmt.Errorf("invalid cross rate: %w", err)
		}
		rates[i].ID = 0
		rates[i].UpdatedAt = now
	}

	written := 0
	for start := 0; start < len(rates); start += s.chunkSize {
		endIdx := start + s.chunkSize
		if endIdx > len(rates) {
			endIdx = len(rates)
		}
		chunk := rates[start:endIdx]

		err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   pairConflictTarget,
				DoUpdates: clause.AssignmentColumns([]string{"exchange_rate", "source", "updated_at"}),
			}).
			Create(&chunk).Error
		if err != nil {
			return written, fmt.Errorf("failed to upsert cross rates: %w", err)
		}
		written += len(chunk)
	}

	return written, nil
}

// ReplaceYtdMetrics deletes every YTD row for the dates of the
// recomputed window [start, end], then inserts the new rows, all inside
// one transaction. YTD fields depend on every earlier date of the year,
// so an upsert could leave stale accumulator-derived values after a
// historical correction; delete-then-insert guarantees freshness for
// the whole window and leaves other dates untouched. Deleting the
// window rather than the payload dates also clears rows for dates the
// recompute dropped upstream, e.g. after an integrity failure.
func (s *Sync) ReplaceYtdMetrics(ctx context.Context, metrics []models.YtdMetric, start, end time.Time) (int, error) {
	if start.IsZero() || end.IsZero() {
		return 0, fmt.Errorf("ytd replace requires a bounded date window")
	}
	windowStart := models.DateOnly(start)
	windowEnd := models.DateOnly(end)
	if windowEnd.Before(windowStart) {
		return 0, fmt.Errorf("ytd replace window end %s precedes start %s",
			windowEnd.Format("2006-01-02"), windowStart.Format("2006-01-02"))
	}

	now := time.Now().UTC()
	for i := range metrics {
		if err := metrics[i].Validate(); err != nil {
			return 0, fmt.Errorf("invalid ytd metric: %w", err)
		}
		metrics[i].ID = 0
		metrics[i].CreatedAt = now
		metrics[i].Date = models.DateOnly(metrics[i].Date)
		if metrics[i].Date.Before(windowStart) || metrics[i].Date.After(windowEnd) {
			return 0, fmt.Errorf("ytd metric for %s falls outside replace window",
				metrics[i].Date.Format("2006-01-02"))
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rate_date >= ? AND rate_date <= ?", windowStart, windowEnd).
			Delete(&models.YtdMetric{}).Error; err != nil {
			return fmt.Errorf("failed to delete stale ytd metrics: %w", err)
		}
		for offset := 0; offset < len(metrics); offset += s.chunkSize {
			endIdx := offset + s.chunkSize
			if endIdx > len(metrics) {
				endIdx = len(metrics)
			}
			chunk := metrics[offset:endIdx]
			if err := tx.Create(&chunk).Error; err != nil {
				return fmt.Errorf("failed to insert ytd metrics: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(metrics), nil
}

// RecordStep appends one audit row to the execution log. Rows are never
// updated afterwards; a step's lifecycle shows up as a running row
// followed by a success or failed row.
func (s *Sync) RecordStep(ctx context.Context, exec models.StepExecution) error {
	exec.ID = 0
	if exec.ExecutedAt.IsZero() {
		exec.ExecutedAt = time.Now().UTC()
	}
	if exec.StartTime.IsZero() {
		exec.StartTime = exec.ExecutedAt
	}
	if err := exec.Validate(); err != nil {
		return fmt.Errorf("invalid step execution: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(&exec).Error; err != nil {
		return fmt.Errorf("failed to record %s step: %w", exec.Step, err)
	}
	return nil
}
