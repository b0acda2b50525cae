package domain

import "math"

const (
	// earthRadiusKm is the mean Earth radius used by the haversine formula.
	earthRadiusKm = 6371.0

	// kmPerDegree converts great-circle kilometers to an approximate
	// degree-distance so results compare directly against thresholds
	// expressed in decimal degrees. One degree of latitude is ~111 km.
	kmPerDegree = 111.0

	// DefaultDangerThresholdDegrees is the radius, in decimal degrees,
	// inside which a hazardous point makes an entity unsafe. 0.05° is
	// roughly 5.5 km. Configurable via DANGER_THRESHOLD_DEGREES.
	DefaultDangerThresholdDegrees = 0.05
)

func degreesToRadians(d float64) float64 {
	return d * math.Pi / 180.0
}

// HaversineKm returns the great-circle distance in kilometers between two
// coordinates in decimal degrees. NaN inputs propagate as NaN; callers
// filter those upstream.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := degreesToRadians(lat1)
	rlat2 := degreesToRadians(lat2)
	dLat := degreesToRadians(lat2 - lat1)
	dLon := degreesToRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// DegreeDistance returns the haversine distance scaled to approximate
// decimal degrees, the unit the danger threshold is expressed in.
func DegreeDistance(lat1, lon1, lat2, lon2 float64) float64 {
	return HaversineKm(lat1, lon1, lat2, lon2) / kmPerDegree
}
