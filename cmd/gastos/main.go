package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gastos/internal/amqp"
	"gastos/internal/auth"
	"gastos/internal/config"
	apphttp "gastos/internal/http"
	applog "gastos/internal/log"
	"gastos/internal/prefs"
	"gastos/internal/services"
	"gastos/internal/storage"
)

func main() {
	// Load .env for local development, ignore errors in production
	_ = godotenv.Load()

	lg := applog.New(applog.Config{}).WithComponent(applog.ComponentApp)
	applog.SetDefault(lg)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		lg.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		lg.Error("Failed to open database", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// The change feed is optional: without AMQP the service still works,
	// the sheet mirror just never hears about writes.
	var publisher services.ChangePublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			lg.Error("Failed to connect to AMQP", applog.FieldError, err)
			os.Exit(1)
		}
		publisher = client
		lg.Info("Change feed enabled", "exchange", cfg.AMQPExchange)
	} else {
		lg.Info("Change feed disabled, no AMQP_URL provided")
	}

	service := services.NewRecordService(repo, publisher, lg)
	defer service.Close()

	var prefsStore *prefs.Store
	if cfg.PrefsPath != "" {
		prefsStore = prefs.New(cfg.PrefsPath)
	} else {
		prefsStore, err = prefs.NewDefault()
		if err != nil {
			lg.Error("Failed to resolve preferences path", applog.FieldError, err)
			os.Exit(1)
		}
	}

	verifier := auth.NewVerifier(cfg.JWTSecret)

	srv := apphttp.NewServer(":"+cfg.Port, service, prefsStore, verifier)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		lg.Info("Shutdown signal received", "signal", sig.String(), applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	lg.Info("Starting gastos server", "port", cfg.Port, applog.FieldOperation, applog.OpStartup)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		lg.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	lg.Info("Server stopped gracefully")
}
