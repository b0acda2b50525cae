// Package monitor runs the proximity safety loop: it tracks online
// entities through the live feeds, evaluates each one against the loaded
// hazard set, and publishes verdicts on every change.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/shadan-pk/wildfire-alert-system/internal/domain"
	"github.com/shadan-pk/wildfire-alert-system/internal/feed"
	"github.com/shadan-pk/wildfire-alert-system/internal/hazard"
	"github.com/shadan-pk/wildfire-alert-system/internal/observability"
)

// Publisher persists one entity's safety verdict, suppressing unchanged
// writes. Reset clears the suppression memory between monitoring periods.
type Publisher interface {
	Publish(ctx context.Context, v domain.SafetyVerdict) bool
	Reset()
}

var (
	// ErrAlreadyRunning is returned by Start while a monitoring period is
	// active. Switching scenarios requires an explicit Stop first.
	ErrAlreadyRunning = errors.New("monitoring already running")

	// ErrScenarioRequired is returned by Start when no scenario is named.
	ErrScenarioRequired = errors.New("scenario name required")
)

// Deps are the collaborators a Monitor needs.
type Deps struct {
	Source    hazard.Source
	Locations feed.LocationFeed
	Presence  feed.PresenceFeed
	Publisher Publisher
	Logger    *slog.Logger
	Metrics   *observability.Metrics
	Clock     clockwork.Clock

	// PollInterval is how often the hazard set is refreshed from the
	// source while running.
	PollInterval time.Duration

	// DangerThreshold is the alerting radius in decimal degrees.
	DangerThreshold float64
}

// Status is a point-in-time view of the monitor for the control API.
type Status struct {
	Running      bool      `json:"running"`
	Scenario     string    `json:"scenario,omitempty"`
	Tracked      int       `json:"tracked_entities"`
	InDanger     int       `json:"entities_in_danger"`
	HazardPoints int       `json:"hazard_points"`
	LoadedAt     time.Time `json:"hazard_loaded_at,omitempty"`
}

// Monitor is the monitoring lifecycle manager. It is stopped until Start
// succeeds and stopped again after Stop; every Start/Stop cycle begins
// with a clean slate: fresh subscriptions, fresh hazard set, fresh verdict
// suppression memory.
type Monitor struct {
	deps  Deps
	ready atomic.Bool

	// lifecycle serializes Start and Stop; mu guards the hot state read
	// by the run loop and Status.
	lifecycle sync.Mutex

	mu       sync.Mutex
	running  bool
	scenario string
	snapshot *hazard.Snapshot
	registry *feed.Registry
	inDanger int
	cancel   context.CancelFunc
	done     chan struct{}

	kick chan struct{}
}

// New creates a stopped Monitor.
func New(deps Deps) *Monitor {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	return &Monitor{
		deps: deps,
		kick: make(chan struct{}, 1),
	}
}

// CheckReadiness returns nil once at least one reconciliation pass has
// completed since the process started.
func (m *Monitor) CheckReadiness(_ context.Context) error {
	if !m.ready.Load() {
		return errors.New("no reconciliation pass has completed yet")
	}
	return nil
}

// Start begins a monitoring period for the named scenario. It loads the
// hazard set synchronously so a bad scenario fails the call rather than
// the background loop, then subscribes to the live feeds and starts the
// poll loop. Start fails while a period is already active.
func (m *Monitor) Start(ctx context.Context, scenario string) error {
	if scenario == "" {
		return ErrScenarioRequired
	}

	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	running := m.running
	m.mu.Unlock()
	if running {
		return ErrAlreadyRunning
	}

	snap, err := m.loadSnapshot(ctx, scenario)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	registry := feed.NewRegistry(m.deps.Locations, m.deps.Presence, m.deps.Logger, m.requestReconcile)
	if err := registry.Start(runCtx); err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})
	m.mu.Lock()
	m.running = true
	m.scenario = scenario
	m.snapshot = snap
	m.registry = registry
	m.inDanger = 0
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	m.deps.Metrics.MonitorRunning.Set(1)
	m.deps.Logger.Info("monitoring started",
		"scenario", scenario,
		"hazard_points", len(snap.Points),
		"hazardous", len(snap.Hazardous),
		"dropped", snap.Dropped,
	)

	go m.run(runCtx, done)
	m.requestReconcile()
	return nil
}

// Stop ends the current monitoring period: the poll loop exits, every
// live subscription is torn down, and the hazard set and verdict memory
// are cleared. Stopping an already-stopped monitor is a no-op. Returns
// true if a running period was stopped.
func (m *Monitor) Stop() bool {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return false
	}
	m.running = false
	scenario := m.scenario
	registry := m.registry
	cancel := m.cancel
	done := m.done
	m.scenario = ""
	m.snapshot = nil
	m.registry = nil
	m.inDanger = 0
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	cancel()
	<-done
	registry.Close()
	m.deps.Publisher.Reset()

	m.deps.Metrics.MonitorRunning.Set(0)
	m.deps.Metrics.TrackedEntities.Set(0)
	m.deps.Metrics.EntitiesInDanger.Set(0)
	m.deps.Metrics.ActiveSubscriptions.Set(0)
	m.deps.Metrics.HazardPoints.Set(0)

	m.deps.Logger.Info("monitoring stopped", "scenario", scenario)
	return true
}

// Status reports the current monitor state.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{
		Running:  m.running,
		Scenario: m.scenario,
		InDanger: m.inDanger,
	}
	if m.registry != nil {
		s.Tracked = len(m.registry.Snapshot())
	}
	if m.snapshot != nil {
		s.HazardPoints = len(m.snapshot.Points)
		s.LoadedAt = m.snapshot.LoadedAt
	}
	return s
}

// run is the poll loop for one monitoring period. Ticks refresh the
// hazard set and re-evaluate; kicks from the registry re-evaluate against
// the current set.
func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := m.deps.Clock.NewTicker(m.deps.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.refresh(ctx)
			m.reconcile(ctx)
		case <-m.kick:
			m.reconcile(ctx)
		}
	}
}

// requestReconcile schedules a reconciliation pass. Requests arriving
// while one is already pending coalesce into it.
func (m *Monitor) requestReconcile() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

// refresh reloads the hazard set for the active scenario. On failure the
// last-good snapshot is retained and the next tick retries.
func (m *Monitor) refresh(ctx context.Context) {
	m.mu.Lock()
	scenario := m.scenario
	running := m.running
	m.mu.Unlock()
	if !running {
		return
	}

	snap, err := m.loadSnapshot(ctx, scenario)
	if err != nil {
		m.deps.Logger.Warn("hazard refresh failed, retaining last-good set",
			"scenario", scenario, "error", err)
		return
	}

	m.mu.Lock()
	if m.running && m.scenario == scenario {
		// Wholesale replacement: points absent from the fresh load stop
		// existing the moment it lands.
		m.snapshot = snap
	}
	m.mu.Unlock()
}

// loadSnapshot fetches and normalizes one scenario dataset, recording
// fetch metrics.
func (m *Monitor) loadSnapshot(ctx context.Context, scenario string) (*hazard.Snapshot, error) {
	start := m.deps.Clock.Now()
	snap, err := m.deps.Source.Load(ctx, scenario)
	m.deps.Metrics.HazardFetchDuration.Observe(m.deps.Clock.Since(start).Seconds())
	if err != nil {
		m.deps.Metrics.HazardFetchErrors.Inc()
		return nil, err
	}

	m.deps.Metrics.HazardPoints.Set(float64(len(snap.Points)))
	if snap.Dropped > 0 {
		m.deps.Metrics.HazardPointsDropped.Add(float64(snap.Dropped))
	}
	return snap, nil
}

// reconcile evaluates every online entity against the current hazard set
// and publishes the verdicts.
func (m *Monitor) reconcile(ctx context.Context) {
	start := m.deps.Clock.Now()

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	snap := m.snapshot
	registry := m.registry
	m.mu.Unlock()

	entities := registry.Snapshot()
	inDanger := 0
	for _, entity := range entities {
		verdict := domain.Evaluate(entity, snap.Hazardous, m.deps.DangerThreshold)
		m.deps.Metrics.Evaluations.Inc()
		if !verdict.Safe {
			inDanger++
		}
		m.deps.Publisher.Publish(ctx, verdict)
	}

	m.mu.Lock()
	if m.running {
		m.inDanger = inDanger
	}
	m.mu.Unlock()

	m.deps.Metrics.TrackedEntities.Set(float64(len(entities)))
	m.deps.Metrics.EntitiesInDanger.Set(float64(inDanger))
	m.deps.Metrics.ActiveSubscriptions.Set(float64(registry.ActiveSubscriptions()))
	m.deps.Metrics.ReconcilePasses.Inc()
	m.deps.Metrics.ReconcileDuration.Observe(m.deps.Clock.Since(start).Seconds())
	m.ready.Store(true)
}
