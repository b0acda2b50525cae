package domain

import (
	"encoding/json"
	"math"
	"time"
)

// RiskLevel is the binary fire-risk classification of a hazard point.
type RiskLevel int

const (
	RiskSafe RiskLevel = iota
	RiskHazardous
)

func (r RiskLevel) String() string {
	if r == RiskHazardous {
		return "hazardous"
	}
	return "safe"
}

// HazardPoint is one geolocated classifier sample from a scenario dataset.
// Points are immutable once loaded; a scenario switch or refresh replaces
// the whole set.
type HazardPoint struct {
	Lat  float64   `json:"lat"`
	Lon  float64   `json:"lon"`
	Risk RiskLevel `json:"prediction"`

	// Metadata carries optional weather readings (temperature, RH, wind
	// speed, FWI indices) used for visualization intensity only. It never
	// influences the safety verdict.
	Metadata map[string]float64 `json:"data,omitempty"`
}

// TrackedEntity is a live-tracked user with a last-known position.
type TrackedEntity struct {
	ID          string    `json:"id"`
	Lat         float64   `json:"latitude"`
	Lon         float64   `json:"longitude"`
	Online      bool      `json:"online"`
	LastUpdated time.Time `json:"last_updated"`
}

// SafetyVerdict is the derived safe/unsafe classification for one entity.
// MinDistance is the degree-distance to the nearest hazardous point seen
// during evaluation, +Inf when the scenario has no hazardous points.
type SafetyVerdict struct {
	EntityID    string  `json:"entity_id"`
	Safe        bool    `json:"safe"`
	MinDistance float64 `json:"min_distance"`
}

// Equal reports whether two verdicts are identical. Used by the publisher
// to suppress writes for unchanged verdicts; infinite distances compare
// equal to each other.
func (v SafetyVerdict) Equal(o SafetyVerdict) bool {
	if v.EntityID != o.EntityID || v.Safe != o.Safe {
		return false
	}
	if math.IsInf(v.MinDistance, 1) && math.IsInf(o.MinDistance, 1) {
		return true
	}
	return v.MinDistance == o.MinDistance
}

// MarshalJSON encodes MinDistance as null when it is infinite, since JSON
// has no representation for +Inf.
func (v SafetyVerdict) MarshalJSON() ([]byte, error) {
	out := struct {
		EntityID    string   `json:"entity_id"`
		Safe        bool     `json:"safe"`
		MinDistance *float64 `json:"min_distance"`
	}{EntityID: v.EntityID, Safe: v.Safe}
	if !math.IsInf(v.MinDistance, 1) {
		out.MinDistance = &v.MinDistance
	}
	return json.Marshal(out)
}

// Prediction is the classifier output row for one input point, as returned
// by the external inference process and stored in scenario collections.
type Prediction struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Prediction int     `json:"prediction"`
}

// IncidentReport is one user-submitted fire sighting.
type IncidentReport struct {
	ID          string    `json:"id"`
	EntityID    string    `json:"entity_id"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// SimulationReading is one operator-created simulation data point with the
// weather features the classifier consumes.
type SimulationReading struct {
	Lat  float64            `json:"lat"`
	Lon  float64            `json:"lon"`
	Data map[string]float64 `json:"data"`
}
