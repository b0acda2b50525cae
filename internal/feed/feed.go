// Package feed defines the live-feed boundary: subscriptions over the
// real-time store for entity locations and presence, and the registry that
// reconciles them into a current snapshot of tracked entities.
package feed

import (
	"context"
	"time"
)

// EntityLocation is one entity's last-known position as reported by the
// live location feed.
type EntityLocation struct {
	Lat       float64
	Lon       float64
	Timestamp time.Time
}

// LocationSet is the full current set of tracked entity locations, keyed
// by entity identity. Every location notification carries the whole set.
type LocationSet map[string]EntityLocation

// Unsubscribe tears down one live subscription. Implementations must make
// it safe to call once; the registry guarantees exactly one call per
// subscription.
type Unsubscribe func()

// LocationFeed delivers the full location set on every change.
type LocationFeed interface {
	SubscribeLocations(ctx context.Context, fn func(LocationSet)) (Unsubscribe, error)
}

// PresenceFeed delivers per-entity online transitions and serves the
// latest-location fetch performed when an entity comes back online.
type PresenceFeed interface {
	SubscribePresence(ctx context.Context, entityID string, fn func(online bool)) (Unsubscribe, error)
	FetchLocation(ctx context.Context, entityID string) (EntityLocation, error)
}
