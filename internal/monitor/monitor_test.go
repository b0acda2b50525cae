package monitor_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadan-pk/wildfire-alert-system/internal/domain"
	"github.com/shadan-pk/wildfire-alert-system/internal/feed"
	"github.com/shadan-pk/wildfire-alert-system/internal/hazard"
	"github.com/shadan-pk/wildfire-alert-system/internal/monitor"
	"github.com/shadan-pk/wildfire-alert-system/internal/observability"
)

// --- mocks ---

type mockSource struct {
	mu    sync.Mutex
	docs  map[string][]map[string]any
	err   error
	loads int
}

func (m *mockSource) Scenarios(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.docs))
	for name := range m.docs {
		names = append(names, name)
	}
	return names, nil
}

func (m *mockSource) Load(_ context.Context, scenario string) (*hazard.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.err != nil {
		return nil, &hazard.FetchError{Scenario: scenario, Err: m.err}
	}
	return hazard.NewSnapshot(scenario, m.docs[scenario]), nil
}

func (m *mockSource) set(scenario string, docs []map[string]any, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs == nil {
		m.docs = make(map[string][]map[string]any)
	}
	m.docs[scenario] = docs
	m.err = err
}

type mockPublisher struct {
	mu        sync.Mutex
	published []domain.SafetyVerdict
	resets    int
}

func (m *mockPublisher) Publish(_ context.Context, v domain.SafetyVerdict) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, v)
	return true
}

func (m *mockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
}

func (m *mockPublisher) latest(entityID string) (domain.SafetyVerdict, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.published) - 1; i >= 0; i-- {
		if m.published[i].EntityID == entityID {
			return m.published[i], true
		}
	}
	return domain.SafetyVerdict{}, false
}

func (m *mockPublisher) resetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

type mockLocationFeed struct {
	mu           sync.Mutex
	handler      func(feed.LocationSet)
	subscribes   int
	unsubscribes int
}

func (m *mockLocationFeed) SubscribeLocations(_ context.Context, fn func(feed.LocationSet)) (feed.Unsubscribe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = fn
	m.subscribes++
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.unsubscribes++
		m.handler = nil
	}, nil
}

func (m *mockLocationFeed) push(set feed.LocationSet) {
	m.mu.Lock()
	fn := m.handler
	m.mu.Unlock()
	if fn != nil {
		fn(set)
	}
}

type mockPresenceFeed struct {
	mu           sync.Mutex
	handlers     map[string]func(bool)
	locations    map[string]feed.EntityLocation
	subscribes   int
	unsubscribes int
}

func newMockPresenceFeed() *mockPresenceFeed {
	return &mockPresenceFeed{
		handlers:  make(map[string]func(bool)),
		locations: make(map[string]feed.EntityLocation),
	}
}

func (m *mockPresenceFeed) SubscribePresence(_ context.Context, id string, fn func(bool)) (feed.Unsubscribe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[id] = fn
	m.subscribes++
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.unsubscribes++
		delete(m.handlers, id)
	}, nil
}

func (m *mockPresenceFeed) FetchLocation(_ context.Context, id string) (feed.EntityLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loc, ok := m.locations[id]
	if !ok {
		return feed.EntityLocation{}, errors.New("no location stored")
	}
	return loc, nil
}

func (m *mockPresenceFeed) setOnline(id string, online bool) {
	m.mu.Lock()
	fn := m.handlers[id]
	m.mu.Unlock()
	if fn != nil {
		fn(online)
	}
}

// --- harness ---

type harness struct {
	monitor *monitor.Monitor
	source  *mockSource
	loc     *mockLocationFeed
	pres    *mockPresenceFeed
	pub     *mockPublisher
	clock   *clockwork.FakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		source: &mockSource{},
		loc:    &mockLocationFeed{},
		pres:   newMockPresenceFeed(),
		pub:    &mockPublisher{},
		clock:  clockwork.NewFakeClockAt(time.Date(2025, time.June, 14, 8, 0, 0, 0, time.UTC)),
	}
	domain.SetClock(h.clock)
	t.Cleanup(func() { domain.SetClock(nil) })
	h.monitor = monitor.New(monitor.Deps{
		Source:          h.source,
		Locations:       h.loc,
		Presence:        h.pres,
		Publisher:       h.pub,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:         observability.NewMetricsForTesting(),
		Clock:           h.clock,
		PollInterval:    5 * time.Second,
		DangerThreshold: domain.DefaultDangerThresholdDegrees,
	})
	t.Cleanup(func() { h.monitor.Stop() })
	return h
}

// bringOnline pushes one entity into the location feed and marks it online.
func (h *harness) bringOnline(id string, lat, lon float64) {
	h.pres.mu.Lock()
	h.pres.locations[id] = feed.EntityLocation{Lat: lat, Lon: lon, Timestamp: h.clock.Now()}
	h.pres.mu.Unlock()
	h.loc.push(feed.LocationSet{id: {Lat: lat, Lon: lon, Timestamp: h.clock.Now()}})
	h.pres.setOnline(id, true)
}

func fireFrontDocs() []map[string]any {
	return []map[string]any{
		{"lat": 11.0400, "lon": 76.2630, "prediction": 1},
		{"lat": 11.1000, "lon": 76.3000, "prediction": 0},
	}
}

// --- tests ---

func TestMonitor_StartRequiresScenario(t *testing.T) {
	h := newHarness(t)

	err := h.monitor.Start(context.Background(), "")

	assert.ErrorIs(t, err, monitor.ErrScenarioRequired)
	assert.False(t, h.monitor.Status().Running)
}

func TestMonitor_StartRejectsDoubleStart(t *testing.T) {
	h := newHarness(t)
	h.source.set("kerala-2025", fireFrontDocs(), nil)

	require.NoError(t, h.monitor.Start(context.Background(), "kerala-2025"))
	err := h.monitor.Start(context.Background(), "kerala-2025")

	assert.ErrorIs(t, err, monitor.ErrAlreadyRunning)
}

func TestMonitor_StartFailsWhenHazardLoadFails(t *testing.T) {
	h := newHarness(t)
	h.source.set("kerala-2025", nil, errors.New("mongo unreachable"))

	err := h.monitor.Start(context.Background(), "kerala-2025")

	require.Error(t, err)
	var fetchErr *hazard.FetchError
	assert.ErrorAs(t, err, &fetchErr)
	assert.False(t, h.monitor.Status().Running)
	assert.Equal(t, 0, h.loc.subscribes)
}

func TestMonitor_EvaluatesOnlineEntitiesAgainstHazardSet(t *testing.T) {
	h := newHarness(t)
	h.source.set("kerala-2025", fireFrontDocs(), nil)
	require.NoError(t, h.monitor.Start(context.Background(), "kerala-2025"))

	h.bringOnline("anna@example.com", 11.0400, 76.2635) // ~0.0005° from the front
	h.bringOnline("ben@example.com", 12.0, 77.0)        // well clear

	require.Eventually(t, func() bool {
		_, ok := h.pub.latest("ben@example.com")
		return ok
	}, time.Second, 5*time.Millisecond)

	anna, ok := h.pub.latest("anna@example.com")
	require.True(t, ok)
	assert.False(t, anna.Safe)
	assert.Less(t, anna.MinDistance, domain.DefaultDangerThresholdDegrees)

	ben, ok := h.pub.latest("ben@example.com")
	require.True(t, ok)
	assert.True(t, ben.Safe)
	assert.Greater(t, ben.MinDistance, domain.DefaultDangerThresholdDegrees)
}

func TestMonitor_SafePointsDoNotEndanger(t *testing.T) {
	h := newHarness(t)
	// The only point near the entity is predicted safe.
	h.source.set("kerala-2025", []map[string]any{
		{"lat": 11.0400, "lon": 76.2630, "prediction": 0},
	}, nil)
	require.NoError(t, h.monitor.Start(context.Background(), "kerala-2025"))

	h.bringOnline("anna@example.com", 11.0400, 76.2635)

	require.Eventually(t, func() bool {
		v, ok := h.pub.latest("anna@example.com")
		return ok && v.Safe
	}, time.Second, 5*time.Millisecond)
}

func TestMonitor_PollRefreshReplacesHazardSet(t *testing.T) {
	h := newHarness(t)
	h.source.set("kerala-2025", fireFrontDocs(), nil)
	require.NoError(t, h.monitor.Start(context.Background(), "kerala-2025"))

	h.bringOnline("anna@example.com", 11.0400, 76.2635)
	require.Eventually(t, func() bool {
		v, ok := h.pub.latest("anna@example.com")
		return ok && !v.Safe
	}, time.Second, 5*time.Millisecond)

	// The front burns out: the fresh load carries no hazardous points and
	// replaces the old set wholesale.
	h.source.set("kerala-2025", []map[string]any{
		{"lat": 11.0400, "lon": 76.2630, "prediction": 0},
	}, nil)
	h.clock.BlockUntilContext(context.Background(), 1)
	h.clock.Advance(5 * time.Second)

	require.Eventually(t, func() bool {
		v, ok := h.pub.latest("anna@example.com")
		return ok && v.Safe
	}, time.Second, 5*time.Millisecond)
}

func TestMonitor_RefreshFailureRetainsLastGoodSet(t *testing.T) {
	h := newHarness(t)
	h.source.set("kerala-2025", fireFrontDocs(), nil)
	require.NoError(t, h.monitor.Start(context.Background(), "kerala-2025"))

	h.source.set("kerala-2025", nil, errors.New("mongo unreachable"))
	h.clock.BlockUntilContext(context.Background(), 1)
	h.clock.Advance(5 * time.Second)

	// Entities arriving after the failed refresh are still evaluated
	// against the last-good set.
	h.bringOnline("anna@example.com", 11.0400, 76.2635)

	require.Eventually(t, func() bool {
		v, ok := h.pub.latest("anna@example.com")
		return ok && !v.Safe
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, h.monitor.Status().HazardPoints)
}

func TestMonitor_StopTearsDownAndResets(t *testing.T) {
	h := newHarness(t)
	h.source.set("kerala-2025", fireFrontDocs(), nil)
	require.NoError(t, h.monitor.Start(context.Background(), "kerala-2025"))

	h.bringOnline("anna@example.com", 11.0400, 76.2635)

	assert.True(t, h.monitor.Stop())

	status := h.monitor.Status()
	assert.False(t, status.Running)
	assert.Empty(t, status.Scenario)
	assert.Zero(t, status.HazardPoints)
	assert.Equal(t, h.loc.subscribes, h.loc.unsubscribes)
	assert.Equal(t, h.pres.subscribes, h.pres.unsubscribes)
	assert.Equal(t, 1, h.pub.resetCount())

	// Stopping again is a no-op.
	assert.False(t, h.monitor.Stop())
	assert.Equal(t, 1, h.pub.resetCount())
}

func TestMonitor_RepeatedCyclesLeakNoSubscriptions(t *testing.T) {
	h := newHarness(t)
	h.source.set("kerala-2025", fireFrontDocs(), nil)

	for cycle := 0; cycle < 4; cycle++ {
		require.NoError(t, h.monitor.Start(context.Background(), "kerala-2025"))
		h.bringOnline("anna@example.com", 11.0400, 76.2635)
		require.True(t, h.monitor.Stop(), "cycle %d", cycle)

		assert.Equal(t, h.loc.subscribes, h.loc.unsubscribes, "cycle %d", cycle)
		assert.Equal(t, h.pres.subscribes, h.pres.unsubscribes, "cycle %d", cycle)
	}
}

func TestMonitor_StatusReportsRunningPeriod(t *testing.T) {
	h := newHarness(t)
	h.source.set("kerala-2025", fireFrontDocs(), nil)
	require.NoError(t, h.monitor.Start(context.Background(), "kerala-2025"))

	h.bringOnline("anna@example.com", 11.0400, 76.2635)

	require.Eventually(t, func() bool {
		s := h.monitor.Status()
		return s.Running && s.Tracked == 1 && s.InDanger == 1
	}, time.Second, 5*time.Millisecond)

	s := h.monitor.Status()
	assert.Equal(t, "kerala-2025", s.Scenario)
	assert.Equal(t, 2, s.HazardPoints)
	assert.Equal(t, h.clock.Now(), s.LoadedAt)
}

func TestMonitor_ReadinessAfterFirstPass(t *testing.T) {
	h := newHarness(t)
	h.source.set("kerala-2025", fireFrontDocs(), nil)

	require.Error(t, h.monitor.CheckReadiness(context.Background()))

	require.NoError(t, h.monitor.Start(context.Background(), "kerala-2025"))
	require.Eventually(t, func() bool {
		return h.monitor.CheckReadiness(context.Background()) == nil
	}, time.Second, 5*time.Millisecond)
}
