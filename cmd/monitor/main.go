package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/shadan-pk/wildfire-alert-system/internal/adapter/http"
	"github.com/shadan-pk/wildfire-alert-system/internal/adapter/kafkaalert"
	"github.com/shadan-pk/wildfire-alert-system/internal/adapter/redisstore"
	"github.com/shadan-pk/wildfire-alert-system/internal/config"
	"github.com/shadan-pk/wildfire-alert-system/internal/hazard"
	"github.com/shadan-pk/wildfire-alert-system/internal/monitor"
	"github.com/shadan-pk/wildfire-alert-system/internal/observability"
	"github.com/shadan-pk/wildfire-alert-system/internal/verdict"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	store := redisstore.New(redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), logger)
	source := hazard.NewHTTPSource(cfg.HazardAPIBaseURL, cfg.HazardFetchTimeout, logger)

	// Kafka alerting is feature-flagged via KAFKA_BROKERS.
	var alerts verdict.AlertSink
	var alertWriter *kafkaalert.Writer
	if len(cfg.KafkaBrokers) > 0 {
		alertWriter = kafkaalert.NewWriter(cfg.KafkaBrokers, cfg.KafkaAlertTopic, logger)
		alerts = alertWriter
		logger.Info("kafka alerting enabled", "topic", cfg.KafkaAlertTopic)
	} else {
		logger.Info("kafka alerting disabled")
	}

	publisher := verdict.NewPublisher(store, alerts, logger, metrics)
	mon := monitor.New(monitor.Deps{
		Source:          source,
		Locations:       store,
		Presence:        store,
		Publisher:       publisher,
		Logger:          logger,
		Metrics:         metrics,
		PollInterval:    cfg.PollInterval,
		DangerThreshold: cfg.DangerThresholdDegrees,
	})

	srv := httpadapter.NewServer(cfg.MonitorAddr, mon, mon, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("control server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	mon.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("control server shutdown error", "error", err)
	}
	if alertWriter != nil {
		if err := alertWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	logger.Info("shutdown complete")
}
