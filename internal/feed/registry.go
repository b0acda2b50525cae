package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shadan-pk/wildfire-alert-system/internal/domain"
)

// Registry maintains the current snapshot of tracked entities by
// reconciling the collection-level location feed against per-entity
// presence subscriptions. It keeps an identity→teardown map and diffs it
// on every location notification: new identities get a presence
// subscription, vanished identities get their teardown invoked exactly
// once, surviving identities are left untouched.
//
// Callbacks arriving after Close are no-ops; unsubscribing races with
// in-flight notifications in every real-time store.
type Registry struct {
	locations LocationFeed
	presence  PresenceFeed
	logger    *slog.Logger
	onChange  func()

	mu        sync.Mutex
	closed    bool
	rootUnsub Unsubscribe
	entities  map[string]domain.TrackedEntity
	teardowns map[string]Unsubscribe
}

// NewRegistry creates a Registry. onChange fires after every snapshot
// mutation and is the reconcile trigger; it must not block.
func NewRegistry(locations LocationFeed, presence PresenceFeed, logger *slog.Logger, onChange func()) *Registry {
	if onChange == nil {
		onChange = func() {}
	}
	return &Registry{
		locations: locations,
		presence:  presence,
		logger:    logger,
		onChange:  onChange,
		entities:  make(map[string]domain.TrackedEntity),
		teardowns: make(map[string]Unsubscribe),
	}
}

// Start subscribes to the collection-level location feed. It fails if the
// registry was already started or closed.
func (r *Registry) Start(ctx context.Context) error {
	unsub, err := r.locations.SubscribeLocations(ctx, func(set LocationSet) {
		r.handleLocations(ctx, set)
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		unsub()
		return nil
	}
	r.rootUnsub = unsub
	r.mu.Unlock()
	return nil
}

// handleLocations applies one full-set location notification: position
// updates for known identities, presence subscriptions for new ones,
// teardowns for vanished ones.
func (r *Registry) handleLocations(ctx context.Context, set LocationSet) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	var added []string
	var removed []Unsubscribe

	for id, loc := range set {
		entity, known := r.entities[id]
		entity.ID = id
		entity.Lat = loc.Lat
		entity.Lon = loc.Lon
		entity.LastUpdated = loc.Timestamp
		if entity.LastUpdated.IsZero() {
			entity.LastUpdated = domain.Now()
		}
		r.entities[id] = entity
		if !known {
			added = append(added, id)
		}
	}

	for id, unsub := range r.teardowns {
		if _, ok := set[id]; ok {
			continue
		}
		removed = append(removed, unsub)
		delete(r.teardowns, id)
		delete(r.entities, id)
	}
	r.mu.Unlock()

	// Teardowns for vanished identities run before new subscriptions are
	// created, keeping the subscribe/unsubscribe pairing exact.
	for _, unsub := range removed {
		unsub()
	}
	for _, id := range added {
		r.subscribePresence(ctx, id)
	}

	r.onChange()
}

// subscribePresence creates the per-entity presence subscription outside
// the registry lock; presence feeds may deliver synchronously.
func (r *Registry) subscribePresence(ctx context.Context, id string) {
	unsub, err := r.presence.SubscribePresence(ctx, id, func(online bool) {
		r.handlePresence(ctx, id, online)
	})
	if err != nil {
		r.logger.Error("presence subscription failed", "entity", id, "error", err)
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		unsub()
		return
	}
	if _, exists := r.teardowns[id]; exists {
		// A concurrent notification already subscribed this identity.
		r.mu.Unlock()
		unsub()
		return
	}
	if _, tracked := r.entities[id]; !tracked {
		// The identity vanished while we were subscribing.
		r.mu.Unlock()
		unsub()
		return
	}
	r.teardowns[id] = unsub
	r.mu.Unlock()
}

// handlePresence applies an online transition for one entity. Going
// offline removes the entity from the active snapshot (but keeps its last
// position); coming online refetches the latest location before re-adding.
func (r *Registry) handlePresence(ctx context.Context, id string, online bool) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	entity, ok := r.entities[id]
	if !ok {
		r.mu.Unlock()
		return
	}

	if !online {
		entity.Online = false
		r.entities[id] = entity
		r.mu.Unlock()
		r.onChange()
		return
	}
	r.mu.Unlock()

	loc, err := r.presence.FetchLocation(ctx, id)
	if err != nil {
		// Fall back to the feed-known position rather than losing the
		// online transition.
		r.logger.Warn("location refetch failed", "entity", id, "error", err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	entity, ok = r.entities[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	entity.Online = true
	if err == nil {
		entity.Lat = loc.Lat
		entity.Lon = loc.Lon
		if !loc.Timestamp.IsZero() {
			entity.LastUpdated = loc.Timestamp
		}
	}
	r.entities[id] = entity
	r.mu.Unlock()

	r.onChange()
}

// Snapshot returns the entities currently online, in no particular order.
func (r *Registry) Snapshot() []domain.TrackedEntity {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.TrackedEntity, 0, len(r.entities))
	for _, e := range r.entities {
		if e.Online {
			out = append(out, e)
		}
	}
	return out
}

// ActiveSubscriptions reports the number of live subscriptions, including
// the collection-level one. Zero after Close.
func (r *Registry) ActiveSubscriptions() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.teardowns)
	if r.rootUnsub != nil {
		n++
	}
	return n
}

// TrackedCount reports how many identities the registry currently holds,
// online or not.
func (r *Registry) TrackedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entities)
}

// Close tears down every live subscription and clears all derived state.
// Each teardown is invoked exactly once; callbacks firing afterwards are
// no-ops. Close is idempotent.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true

	teardowns := make([]Unsubscribe, 0, len(r.teardowns)+1)
	for _, unsub := range r.teardowns {
		teardowns = append(teardowns, unsub)
	}
	if r.rootUnsub != nil {
		teardowns = append(teardowns, r.rootUnsub)
	}
	r.teardowns = make(map[string]Unsubscribe)
	r.entities = make(map[string]domain.TrackedEntity)
	r.rootUnsub = nil
	r.mu.Unlock()

	for _, unsub := range teardowns {
		unsub()
	}
}
