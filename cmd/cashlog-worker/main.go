package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"cashlog/internal/config"
	"cashlog/internal/events"
	applog "cashlog/internal/log"
	"cashlog/internal/sheets"
	gsheet "cashlog/internal/sheets/google"
	"cashlog/internal/storage"
	"cashlog/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting cashlog-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Sheets misconfiguration disables the mirror, never the ledger.
	var appender sheets.TransactionAppender
	if cfg.SheetsEnabled() {
		client, err := gsheet.NewClient(context.Background(), cfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		appender = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets mirror disabled - no spreadsheet configured, idling")
	}

	amqpClient, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if appender == nil {
		// Nothing to do but keep the queue bound until shutdown.
		<-ctx.Done()
		logger.Info("Worker shutdown complete")
		return
	}

	syncWorker := worker.NewSyncWorker(repo, appender, cfg.SyncBatchSize)

	// Recover anything missed while the worker was down.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
		// Don't exit - continue with normal operation
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeLedgerEvents(ctx, syncWorker.HandleLedgerEvent)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := syncWorker.ProcessPending(ctx); err != nil {
					logger.Error("Periodic sync failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
