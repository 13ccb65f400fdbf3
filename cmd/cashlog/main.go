package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cashlog/internal/auth"
	"cashlog/internal/config"
	"cashlog/internal/events"
	apphttp "cashlog/internal/http"
	applog "cashlog/internal/log"
	"cashlog/internal/services"
	"cashlog/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentApp)
	applog.SetDefault(logger)

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

	// AMQP is optional: without it transactions still post, only the
	// spreadsheet mirror goes quiet.
	var publisher services.LedgerEventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port,
		services.NewLedgerService(repo, publisher),
		services.NewReportService(repo),
		services.NewMasterDataService(repo),
		auth.NewVerifier(cfg.AuthJWTSecret))

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting cashlog server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
