package domain

import "math"

// Evaluate derives the safety verdict for one entity against the hazardous
// points of the current scenario. The entity is unsafe iff any point lies
// strictly closer than threshold degrees; a distance exactly at the
// threshold is safe. Iteration short-circuits on the first point under
// threshold, so in that case MinDistance is the distance to that point.
// When no point is under threshold, MinDistance is the true minimum over
// all hazardous points, or +Inf when there are none.
//
// Evaluation is a pure function of its inputs: identical inputs produce a
// bit-identical verdict, which is what lets racing re-evaluations resolve
// with last-write-wins semantics.
func Evaluate(entity TrackedEntity, hazardous []HazardPoint, threshold float64) SafetyVerdict {
	minDist := math.Inf(1)

	for _, p := range hazardous {
		d := DegreeDistance(entity.Lat, entity.Lon, p.Lat, p.Lon)
		if math.IsNaN(d) {
			continue
		}
		if d < minDist {
			minDist = d
		}
		if d < threshold {
			return SafetyVerdict{EntityID: entity.ID, Safe: false, MinDistance: d}
		}
	}

	return SafetyVerdict{EntityID: entity.ID, Safe: true, MinDistance: minDist}
}
