package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"device-activity-service/internal/activity"
	"device-activity-service/internal/aggregation"
	"device-activity-service/internal/config"
	"device-activity-service/internal/controller"
	"device-activity-service/internal/db"
	httpserver "device-activity-service/internal/http"
	"device-activity-service/internal/logging"
	"device-activity-service/internal/metrics"
	"device-activity-service/internal/repository"
	"device-activity-service/internal/routes"
	"device-activity-service/internal/service"
	"device-activity-service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger := logging.New(logging.Config{Level: "info", Output: os.Stderr})
		logger.Fatal().Err(err).Msg("load config")
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stdout})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := storage.Open(ctx, storage.Options{
		Kind:           cfg.StorageBackend,
		BadgerPath:     cfg.BadgerPath,
		RedisAddr:      cfg.RedisAddr,
		RedisPassword:  cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		RedisNamespace: cfg.RedisNamespace,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("open storage")
	}
	defer backend.Close()

	rec := metrics.NewPrometheus()
	activityLog := activity.New(backend,
		activity.WithCapacity(cfg.MaxActivityRecords),
		activity.WithLogger(logger),
		activity.WithMetrics(rec),
	)
	engine := aggregation.NewEngine(activityLog,
		aggregation.WithLocation(cfg.Location),
		aggregation.WithRecentLimit(cfg.RecentActivityLimit),
	)

	probes := []routes.Probe{{
		Name: "storage",
		Check: func(ctx context.Context) error {
			_, _, err := backend.Get(ctx, storage.ActivityKey)
			return err
		},
	}}

	if cfg.ArchiveEnabled {
		conn, err := db.NewConnection(ctx, cfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect archive")
		}
		defer conn.Close()

		if err := db.RunMigrations(ctx, conn); err != nil {
			logger.Fatal().Err(err).Msg("migrate archive")
		}

		repo := repository.NewArchiveRepository(conn)
		probes = append(probes, routes.Probe{Name: "archive", Check: repo.Ping})

		worker := service.NewArchiveWorker(repo, logger, rec,
			cfg.ArchiveBufferSize, cfg.ArchiveBatchSize, cfg.ArchiveFlushEvery)
		detach := worker.Attach(activityLog)
		defer worker.Shutdown()
		defer detach()
	}

	activityService := service.NewActivityService(activityLog, engine)
	activityController := controller.NewActivityController(activityService)
	server := httpserver.NewServer(cfg, activityController, rec.Registry(), logger, probes...)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown")
		}
	}()

	logger.Info().
		Str("addr", cfg.HTTPPort).
		Str("storage", cfg.StorageBackend).
		Int("capacity", activityLog.Capacity()).
		Bool("archive", cfg.ArchiveEnabled).
		Msg("starting server")
	if err := server.Listen(cfg.HTTPPort); err != nil {
		logger.Error().Err(err).Msg("server stopped")
	}
	logger.Info().Msg("shutdown complete")
}
