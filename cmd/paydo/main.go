package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"paydo/internal/amqp"
	"paydo/internal/config"
	apphttp "paydo/internal/http"
	applog "paydo/internal/log"
	"paydo/internal/services"
	"paydo/internal/snapshot"
	"paydo/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Text handler for stdout plus an in-memory ring served by the
	// debug logs endpoint.
	ring := applog.NewRingHandler()
	text := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: applog.ParseLevel(cfg.LogLevel),
	})
	logger := slog.New(applog.NewTee(text, ring))
	slog.SetDefault(logger)

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	// The broker is optional: without it mutations still commit
	// locally, only the backup worker goes without change events.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without change events", "error", err)
			amqpClient = nil
		}
	}

	app := services.NewAppService(repo, amqpClient)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := bootstrapState(ctx, app, cfg); err != nil {
		logger.Error("failed to bootstrap state", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, app, ring)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("starting paydo server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("server stopped gracefully")
}

// bootstrapState seeds an empty database, adopting a JSON snapshot
// from the backup directory (current or legacy file name) when one
// exists, and falling back to the default account otherwise.
func bootstrapState(ctx context.Context, app *services.AppService, cfg *config.Config) error {
	accounts, err := app.Accounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		store := snapshot.NewStore(cfg.BackupDir, slog.Default())
		state, found, err := store.Load()
		if err != nil {
			return err
		}
		if found {
			slog.Info("restoring state from snapshot",
				"accounts", len(state.Accounts),
				"transactions", len(state.Transactions))
			return app.RestoreState(ctx, state)
		}
	}
	return app.EnsureSeedData(ctx)
}
