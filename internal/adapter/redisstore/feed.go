package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shadan-pk/wildfire-alert-system/internal/domain"
	"github.com/shadan-pk/wildfire-alert-system/internal/feed"
)

// storedLocation is the hash-field wire format for one entity position.
type storedLocation struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubscribeLocations implements feed.LocationFeed. Every publish on the
// locations channel triggers a full HGETALL, so the callback always sees
// the complete current set. The current set is also delivered once
// immediately after subscribing.
func (s *Store) SubscribeLocations(ctx context.Context, fn func(feed.LocationSet)) (feed.Unsubscribe, error) {
	pubsub := s.rdb.Subscribe(ctx, locationsChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", locationsChannel, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		s.deliverLocations(ctx, fn)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				s.deliverLocations(ctx, fn)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = pubsub.Close()
			<-done
		})
	}, nil
}

func (s *Store) deliverLocations(ctx context.Context, fn func(feed.LocationSet)) {
	set, err := s.fetchLocationSet(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("location set fetch failed", "error", err)
		}
		return
	}
	fn(set)
}

func (s *Store) fetchLocationSet(ctx context.Context) (feed.LocationSet, error) {
	raw, err := s.rdb.HGetAll(ctx, locationsKey).Result()
	if err != nil {
		return nil, err
	}

	set := make(feed.LocationSet, len(raw))
	for id, value := range raw {
		var loc storedLocation
		if err := json.Unmarshal([]byte(value), &loc); err != nil {
			s.logger.Warn("skipping malformed location entry", "entity", id, "error", err)
			continue
		}
		set[id] = feed.EntityLocation{Lat: loc.Lat, Lon: loc.Lon, Timestamp: loc.UpdatedAt}
	}
	return set, nil
}

// SubscribePresence implements feed.PresenceFeed. The entity's current
// presence, if known, is delivered once immediately after subscribing.
func (s *Store) SubscribePresence(ctx context.Context, entityID string, fn func(bool)) (feed.Unsubscribe, error) {
	channel := presenceChannelPrefix + entityID
	pubsub := s.rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", channel, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		if current, err := s.rdb.HGet(ctx, presenceKey, entityID).Result(); err == nil {
			fn(current == "1")
		} else if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			s.logger.Warn("presence read failed", "entity", entityID, "error", err)
		}

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				fn(msg.Payload == "1")
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = pubsub.Close()
			<-done
		})
	}, nil
}

// FetchLocation implements feed.PresenceFeed; it reads the latest stored
// position for one entity.
func (s *Store) FetchLocation(ctx context.Context, entityID string) (feed.EntityLocation, error) {
	value, err := s.rdb.HGet(ctx, locationsKey, entityID).Result()
	if errors.Is(err, redis.Nil) {
		return feed.EntityLocation{}, fmt.Errorf("no location stored for %q", entityID)
	}
	if err != nil {
		return feed.EntityLocation{}, err
	}

	var loc storedLocation
	if err := json.Unmarshal([]byte(value), &loc); err != nil {
		return feed.EntityLocation{}, fmt.Errorf("malformed location for %q: %w", entityID, err)
	}
	return feed.EntityLocation{Lat: loc.Lat, Lon: loc.Lon, Timestamp: loc.UpdatedAt}, nil
}

// UpdateLocation stores one entity's position, marks it online, and
// notifies subscribers. Presence is only published on an actual
// transition so subscribers are not flooded on every movement.
func (s *Store) UpdateLocation(ctx context.Context, entityID string, lat, lon float64) error {
	payload, err := json.Marshal(storedLocation{Lat: lat, Lon: lon, UpdatedAt: domain.Now().UTC()})
	if err != nil {
		return err
	}

	prev, err := s.rdb.HGet(ctx, presenceKey, entityID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, locationsKey, entityID, payload)
	pipe.HSet(ctx, presenceKey, entityID, "1")
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	if err := s.rdb.Publish(ctx, locationsChannel, entityID).Err(); err != nil {
		return err
	}
	if prev != "1" {
		return s.rdb.Publish(ctx, presenceChannelPrefix+entityID, "1").Err()
	}
	return nil
}

// SetPresence records an explicit online/offline transition for one
// entity and notifies its presence channel.
func (s *Store) SetPresence(ctx context.Context, entityID string, online bool) error {
	value := "0"
	if online {
		value = "1"
	}
	if err := s.rdb.HSet(ctx, presenceKey, entityID, value).Err(); err != nil {
		return err
	}
	return s.rdb.Publish(ctx, presenceChannelPrefix+entityID, value).Err()
}
