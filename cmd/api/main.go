package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mediastudio/internal/bootstrap"
	"mediastudio/internal/http/handlers"
	"mediastudio/internal/http/httpapi"
	"mediastudio/internal/infra"
	"mediastudio/internal/infra/geoip"
	"mediastudio/internal/middleware"
	"mediastudio/internal/pipeline"
	"mediastudio/internal/progress"
	"mediastudio/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := bootstrap.OpenData(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open job store")
	}
	defer data.Close()

	store, err := bootstrap.OpenStore(ctx, cfg, data.Credentials)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open object storage")
	}
	adapters, err := bootstrap.OpenAdapters(ctx, cfg, data.Credentials, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure providers")
	}

	hub := progress.NewHub(logger, progress.DefaultBuffer)
	orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
		Repo:   data.Jobs,
		Hub:    hub,
		Text:   adapters.Text,
		Images: adapters.Images,
		Speech: adapters.Speech,
		Store:  store,
		Logger: logger.With().Str("component", "pipeline").Logger(),
		Limits: pipeline.Limits{
			MaxScenes:    cfg.MaxScenes,
			StageTimeout: cfg.StageTimeout,
		},
	})
	supervisor := pipeline.NewSupervisor(orchestrator, cfg.MaxInFlight, logger)

	var countryLookup middleware.CountryLookup
	if cfg.GeoIPDBPath != "" {
		resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.GeoIPDBPath).Msg("geoip database unavailable, country detection disabled")
		} else {
			defer resolver.Close()
			countryLookup = resolver.CountryCode
		}
	}

	opts := httpapi.Options{
		JWTSecret:       cfg.JWTSecret,
		CORSOrigins:     cfg.CORSOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   countryLookup,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Logger:          logger,
		Hub:             hub,
		Upgrader:        progress.NewUpgrader(cfg.CORSOrigins),
	}
	if fs, ok := store.(*storage.FileStore); ok {
		opts.StaticDir = fs.BasePath()
	}

	app := handlers.NewApp(data.Jobs, supervisor, store, logger, cfg.MaxLengthMinutes)
	app.Saved = data.Saved
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, opts))

	go func() {
		logger.Info().Str("addr", server.Addr()).Str("database", cfg.DatabaseDriver).Str("storage", cfg.StorageDriver).Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.ShutdownDrain)
	defer cancelDrain()
	if err := supervisor.Drain(drainCtx); err != nil {
		logger.Warn().Err(err).Msg("pipeline runs cancelled before completion")
	}
	logger.Info().Msg("server stopped")
}
