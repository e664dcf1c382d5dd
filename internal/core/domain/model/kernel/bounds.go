package kernel

import "math"

// Bounds is the axis-aligned box spanning a set of coordinates, used to fit
// a map camera around a route or a group of markers.
type Bounds struct {
	SouthWest Coordinate
	NorthEast Coordinate
}

// BoundsOf returns the smallest box containing every valid point.
// Zero-value coordinates are skipped. ok is false when nothing remains.
func BoundsOf(points ...Coordinate) (Bounds, bool) {
	minLat, minLng := math.Inf(1), math.Inf(1)
	maxLat, maxLng := math.Inf(-1), math.Inf(-1)
	found := false

	for _, p := range points {
		if p.Validate() != nil {
			continue
		}
		found = true
		minLat = math.Min(minLat, p.lat)
		minLng = math.Min(minLng, p.lng)
		maxLat = math.Max(maxLat, p.lat)
		maxLng = math.Max(maxLng, p.lng)
	}
	if !found {
		return Bounds{}, false
	}

	sw, _ := NewCoordinate(minLat, minLng)
	ne, _ := NewCoordinate(maxLat, maxLng)
	return Bounds{SouthWest: sw, NorthEast: ne}, true
}

// Center returns the midpoint of the box in latitude/longitude space.
func (b Bounds) Center() Coordinate {
	return Lerp(b.SouthWest, b.NorthEast, 0.5)
}
