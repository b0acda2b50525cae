package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shadan-pk/wildfire-alert-system/internal/adapter/httpapi"
	"github.com/shadan-pk/wildfire-alert-system/internal/adapter/mongostore"
	"github.com/shadan-pk/wildfire-alert-system/internal/adapter/redisstore"
	"github.com/shadan-pk/wildfire-alert-system/internal/classifier"
	"github.com/shadan-pk/wildfire-alert-system/internal/config"
	"github.com/shadan-pk/wildfire-alert-system/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongo, err := mongostore.Connect(connectCtx, cfg.MongoURI, cfg.PredictionDB, cfg.SimulationDB, logger)
	connectCancel()
	if err != nil {
		logger.Error("mongodb connection failed", "error", err)
		os.Exit(1)
	}

	scenarios := httpapi.NewCachedScenarioStore(mongo, cfg.ScenarioCacheSize)
	live := redisstore.New(redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), logger)
	runner := classifier.New(cfg.ClassifierCommand, cfg.ClassifierTimeout, logger)

	srv := httpapi.NewServer(cfg.APIAddr, scenarios, live, runner, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown error", "error", err)
	}
	if err := mongo.Close(shutdownCtx); err != nil {
		logger.Error("mongodb close error", "error", err)
	}
	if err := live.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	logger.Info("shutdown complete")
}
