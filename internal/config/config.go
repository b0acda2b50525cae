// Package config loads service settings from environment variables, with a
// .env file picked up for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/shadan-pk/wildfire-alert-system/internal/domain"
)

// Config holds settings for both the API service and the safety monitor,
// populated from environment variables.
type Config struct {
	APIAddr         string
	MonitorAddr     string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// MongoDB prediction/simulation storage.
	MongoURI     string
	PredictionDB string
	SimulationDB string

	// Redis live store (locations, presence, verdicts, reports).
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Kafka verdict-transition alerts. Disabled when no brokers are set.
	KafkaBrokers    []string
	KafkaAlertTopic string

	// Safety monitor tuning.
	HazardAPIBaseURL       string
	HazardFetchTimeout     time.Duration
	PollInterval           time.Duration
	DangerThresholdDegrees float64

	// External classifier subprocess for dataset uploads.
	ClassifierCommand []string
	ClassifierTimeout time.Duration

	// Scenario dataset cache in the API service.
	ScenarioCacheSize int
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("HAZARD_FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	pollInterval, err := parseDuration("POLL_INTERVAL", "5s")
	if err != nil {
		return nil, err
	}
	classifierTimeout, err := parseDuration("CLASSIFIER_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	threshold, err := parseThreshold()
	if err != nil {
		return nil, err
	}

	redisDB, err := parseInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("SCENARIO_CACHE_SIZE", 16)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		APIAddr:         envOrDefault("API_ADDR", ":5000"),
		MonitorAddr:     envOrDefault("MONITOR_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MongoURI:     envOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		PredictionDB: envOrDefault("MONGO_PREDICTION_DB", "predictionData"),
		SimulationDB: envOrDefault("MONGO_SIMULATION_DB", "simulationData"),

		RedisAddr:     envOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		KafkaBrokers:    parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaAlertTopic: envOrDefault("KAFKA_ALERT_TOPIC", "safety-alerts"),

		HazardAPIBaseURL:       envOrDefault("HAZARD_API_URL", "http://localhost:5000"),
		HazardFetchTimeout:     fetchTimeout,
		PollInterval:           pollInterval,
		DangerThresholdDegrees: threshold,

		ClassifierCommand: strings.Fields(envOrDefault("CLASSIFIER_CMD", "python3 scripts/predict.py")),
		ClassifierTimeout: classifierTimeout,

		ScenarioCacheSize: cacheSize,
	}

	if cfg.MongoURI == "" {
		return nil, errors.New("MONGO_URI is required")
	}
	if cfg.RedisAddr == "" {
		return nil, errors.New("REDIS_ADDR is required")
	}
	if cfg.PollInterval <= 0 {
		return nil, errors.New("POLL_INTERVAL must be positive")
	}
	if len(cfg.ClassifierCommand) == 0 {
		return nil, errors.New("CLASSIFIER_CMD is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	raw := envOrDefault(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return n, nil
}

// parseThreshold reads the danger radius in decimal degrees. The default
// (0.05°, ~5.5 km) is deliberate: observed variants disagreed between a
// few meters and a few kilometers, and an alerting radius under the size
// of a fire front is useless to the person being warned.
func parseThreshold() (float64, error) {
	raw := os.Getenv("DANGER_THRESHOLD_DEGREES")
	if raw == "" {
		return domain.DefaultDangerThresholdDegrees, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid DANGER_THRESHOLD_DEGREES: %q", raw)
	}
	return v, nil
}

func parseBrokers(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
