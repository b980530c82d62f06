package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gastos/internal/amqp"
	"gastos/internal/config"
	applog "gastos/internal/log"
	gsheet "gastos/internal/sheets/google"
	"gastos/internal/storage"
	"gastos/internal/worker"
)

func main() {
	_ = godotenv.Load()

	lg := applog.New(applog.Config{}).WithComponent(applog.ComponentWorker)
	applog.SetDefault(lg)

	lg.Info("Starting gastos-worker", applog.FieldOperation, applog.OpStartup)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		lg.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.GoogleSpreadsheetID == "" {
		lg.Error("GOOGLE_SPREADSHEET_ID is required, the worker mirrors records to a sheet")
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		lg.Error("AMQP_URL is required, the worker consumes the change feed")
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		lg.Error("Failed to open database", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	mirror, err := gsheet.NewFromEnv(context.Background())
	if err != nil {
		lg.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	lg.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		lg.Error("Failed to connect to AMQP", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mirrorWorker := worker.NewMirrorWorker(repo, mirror, cfg.SyncBatchSize)

	// Mirror anything that accumulated while the worker was down.
	if err := mirrorWorker.CatchUp(ctx); err != nil {
		lg.Error("Startup catch-up failed", applog.FieldError, err)
	}

	go func() {
		if err := amqpClient.ConsumeChanges(ctx, mirrorWorker.HandleChange); err != nil {
			if !errors.Is(err, context.Canceled) {
				lg.Error("Change consumption failed", applog.FieldError, err)
			}
			cancel()
		}
	}()

	// Periodic sweep for changes the feed missed.
	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := mirrorWorker.CatchUp(ctx); err != nil {
					lg.Error("Periodic catch-up failed", applog.FieldError, err)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		lg.Info("Shutdown signal received", "signal", sig.String(), applog.FieldOperation, applog.OpShutdown)
	case <-ctx.Done():
		lg.Info("Context cancelled")
	}

	cancel()
	time.Sleep(2 * time.Second) // give in-flight mirrors a moment to land
	lg.Info("Worker shutdown complete")
}
