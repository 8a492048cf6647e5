package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/models"
)

// Defaults mirroring the production deployment
const (
	DefaultAPIBaseURL = "https://api.frankfurter.dev/v1"
	DefaultStartDate  = "2024-01-01"
	DefaultChunkSize  = 500
	DefaultListenAddr = ":8084"
)

// Config holds the pipeline run parameters. Everything comes from the
// environment; a .env file is loaded by the entrypoint before this runs.
type Config struct {
	APIBaseURL string
	Universe   models.Universe
	StartDate  time.Time
	EndDate    time.Time // run window end, defaults to today
	ChunkSize  int
	ListenAddr string
}

// Load builds the configuration from environment variables.
func Load() (*Config, error) {
	universe := models.DefaultUniverse()
	if raw := os.Getenv("FX_CURRENCIES"); raw != "" {
		parsed, err := models.ParseUniverse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid FX_CURRENCIES: %w", err)
		}
		universe = parsed
	}

	start, err := time.Parse("2006-01-02", getEnv("START_DATE", DefaultStartDate))
	if err != nil {
		return nil, fmt.Errorf("invalid START_DATE: %w", err)
	}

	end := models.DateOnly(time.Now().UTC())
	if raw := os.Getenv("END_DATE"); raw != "" {
		end, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("invalid END_DATE: %w", err)
		}
	}

	chunkSize := DefaultChunkSize
	if raw := os.Getenv("LOAD_CHUNK_SIZE"); raw != "" {
		chunkSize, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid LOAD_CHUNK_SIZE: %w", err)
		}
	}

	cfg := &Config{
		APIBaseURL: getEnv("API_BASE_URL", DefaultAPIBaseURL),
		Universe:   universe,
		StartDate:  models.DateOnly(start),
		EndDate:    models.DateOnly(end),
		ChunkSize:  chunkSize,
		ListenAddr: getEnv("LISTEN_ADDR", DefaultListenAddr),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration before a run starts.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if c.Universe.Size() < 2 {
		return fmt.Errorf("currency universe needs at least 2 currencies, got %d", c.Universe.Size())
	}
	if c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("END_DATE %s is before START_DATE %s",
			c.EndDate.Format("2006-01-02"), c.StartDate.Format("2006-01-02"))
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("LOAD_CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
