// Package hazard loads and holds scenario hazard sets. A Snapshot is
// immutable: refreshes and scenario switches always replace the whole set,
// never merge into it.
package hazard

import (
	"context"
	"fmt"
	"time"

	"github.com/shadan-pk/wildfire-alert-system/internal/domain"
)

// Snapshot is one fully-loaded scenario dataset. Hazardous is the
// pre-filtered subset that participates in safety evaluation; Points keeps
// every parseable point for visualization intensity.
type Snapshot struct {
	Scenario  string
	Points    []domain.HazardPoint
	Hazardous []domain.HazardPoint
	Dropped   int
	LoadedAt  time.Time
}

// Source fetches scenario names and datasets from the prediction store.
type Source interface {
	Scenarios(ctx context.Context) ([]string, error)
	Load(ctx context.Context, scenario string) (*Snapshot, error)
}

// FetchError wraps failures to reach the hazard source or to decode its
// response shape. Callers retain the last-good snapshot on FetchError.
type FetchError struct {
	Scenario string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Scenario == "" {
		return fmt.Sprintf("hazard fetch: %v", e.Err)
	}
	return fmt.Sprintf("hazard fetch for scenario %q: %v", e.Scenario, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewSnapshot builds a Snapshot from raw scenario documents, normalizing
// each through the domain adapter. Points that fail to parse are dropped
// and counted, never fatal to the batch.
func NewSnapshot(scenario string, docs []map[string]any) *Snapshot {
	snap := &Snapshot{
		Scenario: scenario,
		Points:   make([]domain.HazardPoint, 0, len(docs)),
		LoadedAt: domain.Now(),
	}

	for _, doc := range docs {
		point, err := domain.ParseHazardPoint(doc)
		if err != nil {
			snap.Dropped++
			continue
		}
		snap.Points = append(snap.Points, point)
		if point.Risk == domain.RiskHazardous {
			snap.Hazardous = append(snap.Hazardous, point)
		}
	}

	return snap
}
