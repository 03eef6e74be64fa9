/**
 * @description
 * Entry point for the payout service.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/watchads/payout-service/internal/api"
	"github.com/watchads/payout-service/internal/app"
	"github.com/watchads/payout-service/internal/config"
	"github.com/watchads/payout-service/internal/store"
	"github.com/watchads/payout-service/pkg/paypalclient"
	payoutrabbit "github.com/watchads/payout-service/pkg/rabbitmq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load .env file for local development. In production, env vars are set directly.
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ledger := store.NewLedger(map[string]int64{
		cfg.LedgerSeedUserID: cfg.LedgerSeedBalance,
	})

	var dispatcher app.Dispatcher
	if cfg.PayPalMode == config.ModeSimulated {
		dispatcher = paypalclient.Simulated{}
		logger.Info("payout dispatch is simulated, no provider calls will be made")
	} else {
		dispatcher = paypalclient.NewClient(cfg.PayPalMode, cfg.PayPalClientID, cfg.PayPalClientSecret)
		logger.Info("payout dispatch via PayPal", "mode", cfg.PayPalMode)
	}

	var publisher app.EventPublisher = &payoutrabbit.EventProducerFallback{}
	if cfg.RabbitMQURL != "" {
		if producer, err := payoutrabbit.NewEventProducer(cfg.RabbitMQURL); err == nil {
			publisher = producer
			defer producer.Close()
		} else {
			logger.Warn("failed to connect to RabbitMQ, using fallback publisher", "error", err)
		}
	}

	service := app.NewService(ledger, dispatcher, publisher, cfg.ConversionRate, cfg.DefaultCurrency, cfg.DefaultUserID)
	handler := api.NewHandler(service)
	router := api.NewRouter(handler, cfg.AllowedOrigins())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server",
			"port", cfg.ServerPort,
			"paypal_mode", cfg.PayPalMode,
			"conversion_rate", cfg.ConversionRate,
			"seed_user", cfg.LedgerSeedUserID,
			"seed_balance", cfg.LedgerSeedBalance,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}
