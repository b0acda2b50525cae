package httpapi

import (
	"context"
	"sync"

	"github.com/shadan-pk/wildfire-alert-system/internal/domain"
)

// CachedScenarioStore wraps a ScenarioStore with an in-memory LRU cache
// of scenario datasets. Writes to a scenario invalidate its cached copy.
type CachedScenarioStore struct {
	inner ScenarioStore
	cache *lruCache
}

// NewCachedScenarioStore creates a cache decorator around a scenario store.
func NewCachedScenarioStore(inner ScenarioStore, maxEntries int) *CachedScenarioStore {
	return &CachedScenarioStore{
		inner: inner,
		cache: newLRUCache(maxEntries),
	}
}

func (c *CachedScenarioStore) ListScenarios(ctx context.Context) ([]string, error) {
	// Collection listings are cheap and must reflect fresh uploads.
	return c.inner.ListScenarios(ctx)
}

func (c *CachedScenarioStore) ScenarioDocs(ctx context.Context, scenario string) ([]map[string]any, error) {
	if docs, ok := c.cache.get(scenario); ok {
		return docs, nil
	}
	docs, err := c.inner.ScenarioDocs(ctx, scenario)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty datasets so a scenario queried before its
	// upload finishes can be retried.
	if len(docs) > 0 {
		c.cache.put(scenario, docs)
	}
	return docs, nil
}

func (c *CachedScenarioStore) InsertPredictions(ctx context.Context, scenario string, predictions []domain.Prediction) error {
	if err := c.inner.InsertPredictions(ctx, scenario, predictions); err != nil {
		return err
	}
	c.cache.invalidate(scenario)
	return nil
}

func (c *CachedScenarioStore) InsertSimulationReading(ctx context.Context, r domain.SimulationReading) error {
	return c.inner.InsertSimulationReading(ctx, r)
}

func (c *CachedScenarioStore) ListSimulationReadings(ctx context.Context) ([]domain.SimulationReading, error) {
	return c.inner.ListSimulationReadings(ctx)
}

func (c *CachedScenarioStore) ClearSimulationReadings(ctx context.Context) error {
	return c.inner.ClearSimulationReadings(ctx)
}

// lruCache is a simple thread-safe LRU cache for scenario datasets.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []map[string]any
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.remove(e)
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
