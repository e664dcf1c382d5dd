package routing

import (
	"context"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/tracking"
	"ordertrack/internal/core/ports"
)

// StraightProvider answers every request with the straight line between the points.
type StraightProvider struct{}

var _ ports.RouteProvider = StraightProvider{}

func (StraightProvider) Route(_ context.Context, source, target kernel.Coordinate) (tracking.RouteSnapshot, error) {
	return tracking.StraightRoute(source, target)
}
