package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"paydo/internal/amqp"
	"paydo/internal/config"
	applog "paydo/internal/log"
	"paydo/internal/services"
	"paydo/internal/snapshot"
	"paydo/internal/storage"
	"paydo/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("configuration validation failed", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: applog.ParseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("starting paydo-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the snapshot worker")
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	// The worker only reads state, so it never publishes change events.
	app := services.NewAppService(repo, nil)
	defer app.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	store := snapshot.NewStore(cfg.BackupDir, logger)
	snapWorker := worker.NewSnapshotWorker(app, store, cfg.SnapshotDebounce, cfg.SnapshotInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Take an initial backup so a fresh worker starts from a known
	// snapshot.
	_ = snapWorker.HandleChange(amqp.NewChangeMessage(amqp.EntityState, "startup", 0))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeChanges(gctx, snapWorker.HandleChange)
	})
	g.Go(func() error {
		return snapWorker.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("worker shutdown complete")
}
