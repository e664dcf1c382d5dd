package tracking

import (
	"errors"
	"fmt"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/pkg/errs"
)

// RouteSnapshot is a computed polyline with its length, cached for rendering only.
type RouteSnapshot struct {
	points         []kernel.Coordinate
	distanceMeters float64
}

// NewRouteSnapshot validates a polyline of at least two points and a non-negative length.
func NewRouteSnapshot(points []kernel.Coordinate, distanceMeters float64) (RouteSnapshot, error) {
	if len(points) < 2 {
		return RouteSnapshot{}, errs.NewValueIsInvalidErrorWithCause(
			"route points", fmt.Errorf("%d points, need at least 2", len(points)))
	}
	if distanceMeters < 0 {
		return RouteSnapshot{}, errs.NewValueIsInvalidErrorWithCause(
			"route distance", fmt.Errorf("%f is negative", distanceMeters))
	}
	for i, p := range points {
		if err := p.Validate(); err != nil {
			return RouteSnapshot{}, errors.Join(fmt.Errorf("route point %d", i), err)
		}
	}

	return RouteSnapshot{
		points:         append([]kernel.Coordinate(nil), points...),
		distanceMeters: distanceMeters,
	}, nil
}

// StraightRoute is a two-point route measured with the haversine distance.
func StraightRoute(source, target kernel.Coordinate) (RouteSnapshot, error) {
	return NewRouteSnapshot([]kernel.Coordinate{source, target}, kernel.Distance(source, target))
}

// Points returns a copy of the polyline.
func (r RouteSnapshot) Points() []kernel.Coordinate {
	return append([]kernel.Coordinate(nil), r.points...)
}

// DistanceMeters returns the route length.
func (r RouteSnapshot) DistanceMeters() float64 {
	return r.distanceMeters
}

// IsEmpty reports whether the snapshot holds no route.
func (r RouteSnapshot) IsEmpty() bool {
	return len(r.points) == 0
}

// Source returns the first point.
func (r RouteSnapshot) Source() kernel.Coordinate {
	if r.IsEmpty() {
		return kernel.Coordinate{}
	}
	return r.points[0]
}

// Target returns the last point.
func (r RouteSnapshot) Target() kernel.Coordinate {
	if r.IsEmpty() {
		return kernel.Coordinate{}
	}
	return r.points[len(r.points)-1]
}

// DistanceLabel formats the length in kilometers with one decimal, e.g. "1.6 km".
func (r RouteSnapshot) DistanceLabel() string {
	return fmt.Sprintf("%.1f km", r.distanceMeters/1000)
}

// Bounds returns the box around the polyline.
func (r RouteSnapshot) Bounds() (kernel.Bounds, bool) {
	return kernel.BoundsOf(r.points...)
}
