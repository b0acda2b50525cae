// Package redisstore is the live-store adapter on Redis: entity locations
// and presence as hashes with pub/sub change notifications, safety
// verdicts as per-entity hashes, and incident reports.
package redisstore

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const (
	locationsKey     = "locations"
	locationsChannel = "locations:updates"

	presenceKey           = "presence"
	presenceChannelPrefix = "presence:"

	verdictKeyPrefix = "safety:"
	reportsKey       = "reports"
)

// Store wraps one Redis client for all live-store concerns.
type Store struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// New creates a Store on an existing client.
func New(rdb *redis.Client, logger *slog.Logger) *Store {
	return &Store{rdb: rdb, logger: logger}
}

// NewClient dials Redis with the configured credentials.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Ping verifies the connection; used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}
