package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/config"
	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/db"
	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/extract"
	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/handlers"
	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/logger"
	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/models"
	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/pipeline"
	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/warehouse"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log, err := logger.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	command := "run"
	args := os.Args[1:]
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	var exitCode int
	switch command {
	case "run":
		exitCode = runPipeline(log, args)
	case "serve":
		exitCode = serveReports(log, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q, expected run or serve\n", command)
		exitCode = 2
	}
	os.Exit(exitCode)
}

// runPipeline executes a full extract → transform → load pass and exits
// non-zero if any step fails.
func runPipeline(log *zap.Logger, args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	startFlag := fs.String("start", "", "run window start date (YYYY-MM-DD), overrides START_DATE")
	endFlag := fs.String("end", "", "run window end date (YYYY-MM-DD), overrides END_DATE")
	fs.Parse(args)

	cfg, err := loadConfig(*startFlag, *endFlag)
	if err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return 1
	}

	database, err := db.Connect(db.NewConfig())
	if err != nil {
		log.Error("failed to connect to warehouse", zap.Error(err))
		return 1
	}
	defer database.Close()

	runner := pipeline.NewRunner(
		extract.NewClient(cfg.APIBaseURL),
		warehouse.NewSync(database, cfg.ChunkSize),
		cfg,
		log,
	)

	if err := runner.Run(context.Background()); err != nil {
		log.Error("pipeline run failed", zap.Error(err))
		return 1
	}
	return 0
}

// serveReports exposes the read-only reporting API over the warehouse.
func serveReports(log *zap.Logger, args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addrFlag := fs.String("addr", "", "listen address, overrides LISTEN_ADDR")
	fs.Parse(args)

	cfg, err := loadConfig("", "")
	if err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return 1
	}
	if *addrFlag != "" {
		cfg.ListenAddr = *addrFlag
	}

	database, err := db.Connect(db.NewConfig())
	if err != nil {
		log.Error("failed to connect to warehouse", zap.Error(err))
		return 1
	}
	defer database.Close()

	router := mux.NewRouter()
	handlers.NewReportingHandler(warehouse.NewSync(database, cfg.ChunkSize), cfg.Universe).Register(router)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("reporting API listening", zap.String("addr", cfg.ListenAddr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server stopped", zap.Error(err))
		return 1
	}
	return 0
}

func loadConfig(startOverride, endOverride string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if startOverride != "" {
		start, err := time.Parse("2006-01-02", startOverride)
		if err != nil {
			return nil, fmt.Errorf("invalid -start: %w", err)
		}
		cfg.StartDate = models.DateOnly(start)
	}
	if endOverride != "" {
		end, err := time.Parse("2006-01-02", endOverride)
		if err != nil {
			return nil, fmt.Errorf("invalid -end: %w", err)
		}
		cfg.EndDate = models.DateOnly(end)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
