package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mediastudio/internal/bootstrap"
	"mediastudio/internal/housekeeping"
	"mediastudio/internal/infra"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseDriver == infra.DriverMemory {
		logger.Fatal().Msg("worker: the memory driver is process local, nothing to sweep")
	}

	data, err := bootstrap.OpenData(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to open job store")
	}
	defer data.Close()

	store, err := bootstrap.OpenStore(ctx, cfg, data.Credentials)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to open object storage")
	}

	// Progress listeners live in the api process, so interrupted runs are
	// only recorded here.
	sweeper := housekeeping.NewSweeper(data.Jobs, store, nil, logger)

	logger.Info().
		Dur("interval", cfg.HousekeepingInterval).
		Dur("stale_after", cfg.HousekeepingStale).
		Dur("retention", cfg.HousekeepingRetention).
		Msg("worker: started")
	sweeper.Run(ctx, cfg.HousekeepingInterval, cfg.HousekeepingStale, cfg.HousekeepingRetention)
	logger.Info().Msg("worker: stopped")
}
