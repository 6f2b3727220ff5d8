package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sidselothcodes/ingestpipe/internal/application"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/api"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/cache"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/config"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/database"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/logging"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/metrics"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/postgres"
	"github.com/sidselothcodes/ingestpipe/internal/infrastructure/worker"
)

func main() {
	logger := logging.New()
	logger.Info("ingestpipe starting up")

	if err := run(logger); err != nil {
		logger.Error("application failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(logger *logging.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err.Error())
		return err
	}

	metricsStore := cache.NewRedisMetricsStore(cache.Config{
		Host: cfg.Buffer.Host,
		Port: cfg.Buffer.Port,
	}, logger)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer connectCancel()

	if err := metricsStore.Connect(connectCtx); err != nil {
		logger.Error("failed to connect to metrics store", "error", err.Error())
		return err
	}
	defer metricsStore.Close()

	conn, err := database.New(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	migrator := database.NewMigrator(conn, logger)
	migrationCtx, migrationCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer migrationCancel()

	if err := migrator.Run(migrationCtx); err != nil {
		return err
	}

	if err := conn.HealthCheck(migrationCtx); err != nil {
		return err
	}

	logger.Info("ingestpipe infrastructure ready", "schema", conn.Schema())

	appMetrics := metrics.New()
	logger.Info("prometheus metrics initialized")

	messageRepo := postgres.NewMessageRepository(conn.Pool(), conn.Schema())

	coordinatorConfig := worker.BatchCoordinatorConfig{
		Size:      cfg.Batch.Size,
		Timeout:   cfg.Batch.Timeout,
		RPSWindow: cfg.RPS.Window,
	}
	coordinator := worker.NewBatchCoordinator(
		metricsStore,
		metricsStore,
		metricsStore,
		messageRepo,
		coordinatorConfig,
		logger,
	).WithMetrics(appMetrics)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	coordinator.Start(workerCtx)

	// sessionCtx governs broadcaster session lifetime, independent of any
	// single HTTP request's context, which ends the moment its handler
	// returns.
	sessionCtx, sessionCancel := context.WithCancel(context.Background())
	defer sessionCancel()

	ingestUseCase := application.NewIngestUseCase(metricsStore, logger).WithMetrics(appMetrics)
	simulateUseCase := application.NewSimulateUseCase(metricsStore, cfg.Batch.Size, application.DefaultSimulateConfig(), logger).WithMetrics(appMetrics)
	retrieveUseCase := application.NewRetrieveUseCase(messageRepo, logger)
	queueStatusUseCase := application.NewQueueStatusUseCase(metricsStore, metricsStore, logger)
	resetUseCase := application.NewResetUseCase(messageRepo, metricsStore, logger)

	serverConfig := api.DefaultServerConfig()
	if port := os.Getenv("PORT"); port != "" {
		serverConfig.Port = ":" + port
	}

	server := api.NewServer(serverConfig, logger)

	messagesHandler := api.NewMessagesHandler(ingestUseCase, simulateUseCase, retrieveUseCase)
	queueHandler := api.NewQueueHandler(queueStatusUseCase, resetUseCase)
	healthHandler := api.NewHealthHandler(metricsStore)
	statsHandler := api.NewStatsHandler(sessionCtx, metricsStore, metricsStore, metricsStore, cfg.Batch.Size, cfg.Broadcast.Interval, logger).WithMetrics(appMetrics)

	api.RegisterRoutes(server.Echo(), api.RouterConfig{
		Messages: messagesHandler,
		Queue:    queueHandler,
		Health:   healthHandler,
		Stats:    statsHandler,
		Buffer:   metricsStore,
		Logger:   logger,
		Metrics:  appMetrics,
	})

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("http server error", "error", err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("ingestpipe shutting down")

	sessionCancel()
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err.Error())
		return err
	}

	// wait for the coordinator's shutdown drain, started by workerCancel
	// above, so the final partial batch still gets flushed before exit.
	coordinator.Stop()
	<-coordinator.Stopped()

	logger.Info("ingestpipe shutdown complete")
	return nil
}
