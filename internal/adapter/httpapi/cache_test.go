package httpapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadan-pk/wildfire-alert-system/internal/domain"
)

// --- mock for cache tests ---

type countingScenarioStore struct {
	docCalls int
	docs     []map[string]any
}

func (m *countingScenarioStore) ListScenarios(_ context.Context) ([]string, error) {
	return []string{"kerala-2025"}, nil
}

func (m *countingScenarioStore) ScenarioDocs(_ context.Context, _ string) ([]map[string]any, error) {
	m.docCalls++
	return m.docs, nil
}

func (m *countingScenarioStore) InsertPredictions(_ context.Context, _ string, _ []domain.Prediction) error {
	return nil
}

func (m *countingScenarioStore) InsertSimulationReading(_ context.Context, _ domain.SimulationReading) error {
	return nil
}

func (m *countingScenarioStore) ListSimulationReadings(_ context.Context) ([]domain.SimulationReading, error) {
	return nil, nil
}

func (m *countingScenarioStore) ClearSimulationReadings(_ context.Context) error {
	return nil
}

// --- CachedScenarioStore tests ---

func TestCachedScenarioStore_CacheHit(t *testing.T) {
	inner := &countingScenarioStore{docs: []map[string]any{{"lat": 11.04}}}
	cached := NewCachedScenarioStore(inner, 10)

	d1, err := cached.ScenarioDocs(context.Background(), "kerala-2025")
	require.NoError(t, err)
	require.Len(t, d1, 1)

	_, err = cached.ScenarioDocs(context.Background(), "kerala-2025")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.docCalls, "should only call inner once")
}

func TestCachedScenarioStore_EmptyDatasetNotCached(t *testing.T) {
	inner := &countingScenarioStore{}
	cached := NewCachedScenarioStore(inner, 10)

	_, _ = cached.ScenarioDocs(context.Background(), "kerala-2025")
	_, _ = cached.ScenarioDocs(context.Background(), "kerala-2025")

	assert.Equal(t, 2, inner.docCalls)
}

func TestCachedScenarioStore_WriteInvalidates(t *testing.T) {
	inner := &countingScenarioStore{docs: []map[string]any{{"lat": 11.04}}}
	cached := NewCachedScenarioStore(inner, 10)

	_, _ = cached.ScenarioDocs(context.Background(), "kerala-2025")
	require.NoError(t, cached.InsertPredictions(context.Background(), "kerala-2025", []domain.Prediction{{Lat: 11.1}}))
	_, _ = cached.ScenarioDocs(context.Background(), "kerala-2025")

	assert.Equal(t, 2, inner.docCalls, "write should invalidate the cached dataset")
}

// --- LRU cache unit tests ---

func docsNamed(name string) []map[string]any {
	return []map[string]any{{"name": name}}
}

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", docsNamed("A"))
	c.put("b", docsNamed("B"))

	docs, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", docs[0]["name"])

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", docsNamed("A"))
	c.put("b", docsNamed("B"))
	c.put("c", docsNamed("C")) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	_, ok = c.get("b")
	assert.True(t, ok)

	_, ok = c.get("c")
	assert.True(t, ok)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", docsNamed("A"))
	c.put("b", docsNamed("B"))

	// Access "a" to promote it
	c.get("a")

	c.put("c", docsNamed("C"))

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_Invalidate(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", docsNamed("A"))
	c.invalidate("a")

	_, ok := c.get("a")
	assert.False(t, ok)

	// Invalidating a missing key is a no-op.
	c.invalidate("missing")
}
