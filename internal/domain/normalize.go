package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrNotNumeric marks a value that could not be normalized to a finite
// float64. Per-point failures are dropped by callers, never fatal.
var ErrNotNumeric = errors.New("value is not numeric")

// extendedJSONKeys are the MongoDB extended-JSON wrapper tags observed in
// scenario documents. The wrapped value is a decimal string.
var extendedJSONKeys = []string{"$numberDouble", "$numberInt", "$numberLong", "$numberDecimal"}

// NormalizeNumeric converts a heterogeneously-encoded numeric value to a
// finite float64. It accepts plain JSON numbers, Go integer and float
// types, json.Number, numeric strings, and single-key extended-JSON
// envelopes like {"$numberDouble": "11.04"}. Anything else, and any
// non-finite result, yields ErrNotNumeric.
func NormalizeNumeric(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return checkFinite(v)
	case float32:
		return checkFinite(float64(v))
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return parseNumericString(v.String())
	case string:
		return parseNumericString(v)
	case map[string]any:
		return unwrapEnvelope(v)
	case map[string]string:
		m := make(map[string]any, len(v))
		for k, s := range v {
			m[k] = s
		}
		return unwrapEnvelope(m)
	case nil:
		return 0, fmt.Errorf("normalize nil: %w", ErrNotNumeric)
	default:
		return 0, fmt.Errorf("normalize %T: %w", value, ErrNotNumeric)
	}
}

func unwrapEnvelope(m map[string]any) (float64, error) {
	if len(m) != 1 {
		return 0, fmt.Errorf("envelope with %d keys: %w", len(m), ErrNotNumeric)
	}
	for _, key := range extendedJSONKeys {
		inner, ok := m[key]
		if !ok {
			continue
		}
		// Envelopes nest at most one level; recursing handles the odd
		// case of a plain number inside the tag.
		return NormalizeNumeric(inner)
	}
	return 0, fmt.Errorf("unrecognized envelope: %w", ErrNotNumeric)
}

func parseNumericString(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, ErrNotNumeric)
	}
	return checkFinite(v)
}

func checkFinite(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value: %w", ErrNotNumeric)
	}
	return v, nil
}

// ParseHazardPoint normalizes one raw scenario document into a HazardPoint.
// Required fields are lat, lon, and prediction (0 or 1, possibly wrapped).
// The optional "data" object becomes Metadata; entries that fail to
// normalize are skipped without failing the point.
func ParseHazardPoint(raw map[string]any) (HazardPoint, error) {
	lat, err := NormalizeNumeric(raw["lat"])
	if err != nil {
		return HazardPoint{}, fmt.Errorf("lat: %w", err)
	}
	lon, err := NormalizeNumeric(raw["lon"])
	if err != nil {
		return HazardPoint{}, fmt.Errorf("lon: %w", err)
	}

	pred, err := NormalizeNumeric(raw["prediction"])
	if err != nil {
		return HazardPoint{}, fmt.Errorf("prediction: %w", err)
	}

	var risk RiskLevel
	switch pred {
	case 0:
		risk = RiskSafe
	case 1:
		risk = RiskHazardous
	default:
		return HazardPoint{}, fmt.Errorf("prediction %v outside {0,1}: %w", pred, ErrNotNumeric)
	}

	point := HazardPoint{Lat: lat, Lon: lon, Risk: risk}

	if data, ok := raw["data"].(map[string]any); ok && len(data) > 0 {
		meta := make(map[string]float64, len(data))
		for key, val := range data {
			n, err := NormalizeNumeric(val)
			if err != nil {
				continue
			}
			meta[key] = n
		}
		if len(meta) > 0 {
			point.Metadata = meta
		}
	}

	return point, nil
}
