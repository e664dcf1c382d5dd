package kernel

import "math"

const (
	// EarthRadiusMeters is the mean Earth radius used by the haversine distance.
	EarthRadiusMeters = 6371000.0

	// StationaryEpsilonDegrees is the per-axis movement below which two fixes are
	// treated as the same spot. GPS noise on a parked device stays under it.
	StationaryEpsilonDegrees = 1e-5
)

// Distance returns the great-circle distance between a and b in meters,
// computed with the haversine formula.
//
// Distance is symmetric, zero for identical points and satisfies the triangle
// inequality up to floating-point rounding.
func Distance(a, b Coordinate) float64 {
	lat1 := toRadians(a.lat)
	lat2 := toRadians(b.lat)
	dLat := toRadians(b.lat - a.lat)
	dLng := toRadians(b.lng - a.lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	h = math.Min(1, h)

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Bearing returns the initial bearing from one point to another in degrees,
// normalized to [0, 360). North is 0 and east is 90.
//
// When the points coincide within StationaryEpsilonDegrees on both axes the
// direction is undefined, so previous is returned unchanged. Pass 0 when no
// earlier bearing exists.
func Bearing(from, to Coordinate, previous float64) float64 {
	if from.IsNear(to, StationaryEpsilonDegrees) {
		return previous
	}

	lat1 := toRadians(from.lat)
	lat2 := toRadians(to.lat)
	dLng := toRadians(to.lng - from.lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)

	return normalizeDegrees(toDegrees(math.Atan2(y, x)))
}

// Lerp interpolates linearly between a and b in latitude/longitude space.
// t is clamped to [0, 1]; t == 0 yields a and t == 1 yields b exactly.
// This is a city-scale approximation, not a geodesic.
func Lerp(a, b Coordinate, t float64) Coordinate {
	switch {
	case math.IsNaN(t) || t <= 0:
		return a
	case t >= 1:
		return b
	}

	c := a
	c.lat = a.lat + (b.lat-a.lat)*t
	c.lng = a.lng + (b.lng-a.lng)*t
	return c
}

func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
