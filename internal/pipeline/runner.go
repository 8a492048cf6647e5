package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/config"
	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/models"
	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/transform"
)

// Extractor produces the source rate table for a date range.
type Extractor interface {
	FetchRange(ctx context.Context, start, end time.Time, universe models.Universe) ([]models.RateObservation, error)
}

// Warehouse is the idempotent load contract the runner writes through.
type Warehouse interface {
	UpsertCrossRates(ctx context.Context, rates []models.CrossRate) (int, error)
	ReplaceYtdMetrics(ctx context.Context, metrics []models.YtdMetric, start, end time.Time) (int, error)
	RecordStep(ctx context.Context, exec models.StepExecution) error
	CountDailyRates(ctx context.Context) (int64, error)
	CountYtdMetrics(ctx context.Context) (int64, error)
}

// Runner executes one batch pass: extract, transform, load. Each step is
// fail-fast and audited; a failed step aborts the run and the already
// committed steps stay in place, which is safe to repeat because every
// write path is idempotent.
type Runner struct {
	extractor Extractor
	warehouse Warehouse
	cfg       *config.Config
	log       *zap.Logger
}

// NewRunner wires a pipeline run.
func NewRunner(extractor Extractor, wh Warehouse, cfg *config.Config, log *zap.Logger) *Runner {
	return &Runner{extractor: extractor, warehouse: wh, cfg: cfg, log: log}
}

// Run executes the full pipeline for the configured window.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("starting pipeline run",
		zap.String("start", r.cfg.StartDate.Format("2006-01-02")),
		zap.String("end", r.cfg.EndDate.Format("2006-01-02")),
		zap.Int("universe_size", r.cfg.Universe.Size()))

	observations, err := r.runExtract(ctx)
	if err != nil {
		return err
	}

	rates, metrics, err := r.runTransform(ctx, observations)
	if err != nil {
		return err
	}

	if err := r.runLoad(ctx, rates, metrics); err != nil {
		return err
	}

	r.log.Info("pipeline run finished",
		zap.Int("cross_rates", len(rates)),
		zap.Int("ytd_metrics", len(metrics)))
	return nil
}

// RunTransformLoad recomputes and reloads from an already extracted
// observation set, skipping the extract step. Useful for replaying a
// window after a load failure without hitting the source API again.
func (r *Runner) RunTransformLoad(ctx context.Context, observations []models.RateObservation) error {
	rates, metrics, err := r.runTransform(ctx, observations)
	if err != nil {
		return err
	}
	return r.runLoad(ctx, rates, metrics)
}

func (r *Runner) runExtract(ctx context.Context) ([]models.RateObservation, error) {
	started := time.Now().UTC()
	r.markRunning(ctx, models.StepExtract, started)

	observations, err := r.extractor.FetchRange(ctx, r.cfg.StartDate, r.cfg.EndDate, r.cfg.Universe)
	if err != nil {
		r.markFailed(ctx, models.StepExtract, started, err)
		return nil, fmt.Errorf("extract step failed: %w", err)
	}

	r.markSuccess(ctx, models.StepExtract, started, len(observations))
	r.log.Info("extract finished", zap.Int("observations", len(observations)))
	return observations, nil
}

// runTransform expands cross pairs and then aggregates YTD metrics, in
// that order: aggregation reads the full expanded history. Dates dropped
// for integrity problems or missing currencies are logged with enough
// context to re-run just that slice, and remain visible afterwards
// through the completeness report.
func (r *Runner) runTransform(ctx context.Context, observations []models.RateObservation) ([]models.CrossRate, []models.YtdMetric, error) {
	started := time.Now().UTC()
	r.markRunning(ctx, models.StepTransform, started)

	expanded := transform.ExpandCrossPairs(observations, r.cfg.Universe)
	for _, gap := range expanded.Gaps {
		missing := make([]string, 0, len(gap.Missing))
		for _, c := range gap.Missing {
			missing = append(missing, c.String())
		}
		r.log.Warn("incomplete source data for date",
			zap.String("date", gap.Date.Format("2006-01-02")),
			zap.Strings("missing", missing))
	}
	for _, integrity := range expanded.Integrity {
		r.log.Error("dropped date with malformed source rate",
			zap.String("date", integrity.Date.Format("2006-01-02")),
			zap.String("currency", integrity.Currency.String()),
			zap.String("rate", integrity.Rate.String()))
	}

	window := transform.DateWindow{Start: r.cfg.StartDate, End: r.cfg.EndDate}
	metrics, err := transform.AggregateYTD(expanded.Rates, window)
	if err != nil {
		r.markFailed(ctx, models.StepTransform, started, err)
		return nil, nil, fmt.Errorf("transform step failed: %w", err)
	}

	r.markSuccess(ctx, models.StepTransform, started, len(expanded.Rates)+len(metrics))
	r.log.Info("transform finished",
		zap.Int("cross_rates", len(expanded.Rates)),
		zap.Int("ytd_metrics", len(metrics)),
		zap.Int("gap_dates", len(expanded.Gaps)),
		zap.Int("dropped_dates", len(expanded.Integrity)))
	return expanded.Rates, metrics, nil
}

// runLoad writes cross rates before the YTD metrics that depend on them.
// YTD rows are replaced for the whole run window so a date dropped by the
// recompute does not leave a stale row behind.
func (r *Runner) runLoad(ctx context.Context, rates []models.CrossRate, metrics []models.YtdMetric) error {
	started := time.Now().UTC()
	r.markRunning(ctx, models.StepLoad, started)

	written, err := r.warehouse.UpsertCrossRates(ctx, rates)
	if err != nil {
		r.markFailed(ctx, models.StepLoad, started, err)
		return fmt.Errorf("load step failed: %w", err)
	}

	replaced, err := r.warehouse.ReplaceYtdMetrics(ctx, metrics, r.cfg.StartDate, r.cfg.EndDate)
	if err != nil {
		r.markFailed(ctx, models.StepLoad, started, err)
		return fmt.Errorf("load step failed: %w", err)
	}

	r.verifyLoad(ctx, written, replaced)

	r.markSuccess(ctx, models.StepLoad, started, written+replaced)
	r.log.Info("load finished",
		zap.Int("cross_rates", written),
		zap.Int("ytd_metrics", replaced))
	return nil
}

// verifyLoad re-counts the fact tables after the writes so the run log
// shows the warehouse totals the load actually produced. A failed count
// is a reporting problem, not a load problem, so it only warns.
func (r *Runner) verifyLoad(ctx context.Context, written, replaced int) {
	dailyTotal, err := r.warehouse.CountDailyRates(ctx)
	if err != nil {
		r.log.Warn("post-load verification could not count daily rates", zap.Error(err))
		return
	}
	ytdTotal, err := r.warehouse.CountYtdMetrics(ctx)
	if err != nil {
		r.log.Warn("post-load verification could not count ytd metrics", zap.Error(err))
		return
	}
	r.log.Info("load verified",
		zap.Int("cross_rates_written", written),
		zap.Int("ytd_metrics_written", replaced),
		zap.Int64("warehouse_daily_rows", dailyTotal),
		zap.Int64("warehouse_ytd_rows", ytdTotal))
}

func (r *Runner) markRunning(ctx context.Context, step models.PipelineStep, started time.Time) {
	r.record(ctx, models.StepExecution{
		Step:      step,
		Status:    models.StatusRunning,
		StartTime: started,
	})
}

func (r *Runner) markSuccess(ctx context.Context, step models.PipelineStep, started time.Time, rows int) {
	finished := time.Now().UTC()
	r.record(ctx, models.StepExecution{
		Step:            step,
		Status:          models.StatusSuccess,
		RowsProcessed:   rows,
		StartTime:       started,
		EndTime:         &finished,
		DurationSeconds: int(finished.Sub(started).Seconds()),
	})
}

func (r *Runner) markFailed(ctx context.Context, step models.PipelineStep, started time.Time, cause error) {
	finished := time.Now().UTC()
	r.record(ctx, models.StepExecution{
		Step:            step,
		Status:          models.StatusFailed,
		ErrorMessage:    cause.Error(),
		StartTime:       started,
		EndTime:         &finished,
		DurationSeconds: int(finished.Sub(started).Seconds()),
	})
}

// record appends an audit row. Audit failures are logged but never mask
// the step outcome they describe.
func (r *Runner) record(ctx context.Context, exec models.StepExecution) {
	if err := r.warehouse.RecordStep(ctx, exec); err != nil {
		r.log.Warn("failed to write execution log row",
			zap.String("step", string(exec.Step)),
			zap.String("status", string(exec.Status)),
			zap.Error(err))
	}
}
