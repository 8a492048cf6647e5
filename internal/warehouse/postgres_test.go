package warehouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/db"
	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/models"
)

// setupPostgresSync boots a throwaway PostgreSQL container. The sqlite
// tests cover the sync logic; this verifies the ON CONFLICT path against
// the real dialect the warehouse runs on.
func setupPostgresSync(t *testing.T) *Sync {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-based DB tests in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("fx_dwh_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{
		DSN:                  connStr,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, gormDB.AutoMigrate(
		&models.CrossRate{},
		&models.YtdMetric{},
		&models.StepExecution{},
	))

	return NewSync(&db.DB{DB: gormDB}, DefaultChunkSize)
}

func TestPostgresUpsertIdempotence(t *testing.T) {
	sync := setupPostgresSync(t)
	ctx := context.Background()

	batch := []models.CrossRate{
		crossRate("2024-01-01", models.CurrencyNOK, models.CurrencySEK, "0.98245614"),
		crossRate("2024-01-01", models.CurrencySEK, models.CurrencyNOK, "1.01785714"),
	}

	_, err := sync.UpsertCrossRates(ctx, batch)
	require.NoError(t, err)
	_, err = sync.UpsertCrossRates(ctx, batch)
	require.NoError(t, err)

	count, err := sync.CountDailyRates(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	// Overwrite path against the real unique constraint.
	corrected := crossRate("2024-01-01", models.CurrencyNOK, models.CurrencySEK, "0.98300000")
	_, err = sync.UpsertCrossRates(ctx, []models.CrossRate{corrected})
	require.NoError(t, err)

	history, err := sync.PairHistory(ctx, models.CurrencyNOK, models.CurrencySEK, day("2024-01-01"), day("2024-01-01"))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "0.983", history[0].Rate.String())
}

func TestPostgresReplaceYtdWindow(t *testing.T) {
	sync := setupPostgresSync(t)
	ctx := context.Background()

	_, err := sync.ReplaceYtdMetrics(ctx, []models.YtdMetric{
		ytdMetric("2024-01-01", models.CurrencyNOK, models.CurrencySEK, "0.98"),
		ytdMetric("2024-01-02", models.CurrencyNOK, models.CurrencySEK, "0.99"),
	}, day("2024-01-01"), day("2024-01-02"))
	require.NoError(t, err)

	_, err = sync.ReplaceYtdMetrics(ctx, []models.YtdMetric{
		ytdMetric("2024-01-02", models.CurrencyNOK, models.CurrencySEK, "1.01"),
	}, day("2024-01-02"), day("2024-01-02"))
	require.NoError(t, err)

	count, err := sync.CountYtdMetrics(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	// A rerun over the full window with a dropped date clears its row.
	_, err = sync.ReplaceYtdMetrics(ctx, []models.YtdMetric{
		ytdMetric("2024-01-02", models.CurrencyNOK, models.CurrencySEK, "1.01"),
	}, day("2024-01-01"), day("2024-01-02"))
	require.NoError(t, err)

	count, err = sync.CountYtdMetrics(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
