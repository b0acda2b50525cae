// Package verdict persists safety verdict transitions to the shared store.
package verdict

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shadan-pk/wildfire-alert-system/internal/domain"
	"github.com/shadan-pk/wildfire-alert-system/internal/observability"
)

// Store merge-writes one verdict document keyed by entity identity.
// Unrelated fields in the stored document must be left untouched.
type Store interface {
	Merge(ctx context.Context, v domain.SafetyVerdict) error
}

// AlertSink receives verdict transitions after they are persisted. Used to
// fan alerts out to operators; a nil sink disables alerting.
type AlertSink interface {
	Publish(ctx context.Context, v domain.SafetyVerdict) error
}

// Publisher writes verdicts to the store exactly when they change. A write
// failure for one entity is logged and retried implicitly on the next
// reconciliation pass; it never blocks other entities.
type Publisher struct {
	store   Store
	alerts  AlertSink
	logger  *slog.Logger
	metrics *observability.Metrics

	mu   sync.Mutex
	last map[string]domain.SafetyVerdict
}

// NewPublisher creates a Publisher. alerts may be nil.
func NewPublisher(store Store, alerts AlertSink, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	return &Publisher{
		store:   store,
		alerts:  alerts,
		logger:  logger,
		metrics: metrics,
		last:    make(map[string]domain.SafetyVerdict),
	}
}

// Publish persists the verdict if it differs from the last successfully
// published value for that entity. Returns true when a write happened.
func (p *Publisher) Publish(ctx context.Context, v domain.SafetyVerdict) bool {
	p.mu.Lock()
	prev, seen := p.last[v.EntityID]
	p.mu.Unlock()

	if seen && prev.Equal(v) {
		p.metrics.VerdictWritesSuppressed.Inc()
		return false
	}

	if err := p.store.Merge(ctx, v); err != nil {
		// Contained: the next reconciliation pass is the retry.
		p.metrics.VerdictWriteErrors.Inc()
		p.logger.Error("verdict write failed", "entity", v.EntityID, "safe", v.Safe, "error", err)
		return false
	}

	p.metrics.VerdictWrites.Inc()
	p.mu.Lock()
	p.last[v.EntityID] = v
	p.mu.Unlock()

	if seen && prev.Safe != v.Safe {
		p.logger.Info("safety verdict changed",
			"entity", v.EntityID,
			"safe", v.Safe,
			"min_distance", v.MinDistance,
		)
	}

	if p.alerts != nil {
		if err := p.alerts.Publish(ctx, v); err != nil {
			p.logger.Warn("alert publish failed", "entity", v.EntityID, "error", err)
		}
	}
	return true
}

// Reset clears the transition memory so a fresh monitoring period starts
// clean and republishes every verdict.
func (p *Publisher) Reset() {
	p.mu.Lock()
	p.last = make(map[string]domain.SafetyVerdict)
	p.mu.Unlock()
}
