package tracker

import (
	"context"
	"log/slog"
	"time"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/tracking"
	"ordertrack/internal/core/ports"
)

const (
	// DefaultRouteTimeout bounds one route provider call.
	DefaultRouteTimeout = 5 * time.Second
	// DefaultRouteDriftMeters is how far a routed endpoint may move before the route is recomputed.
	DefaultRouteDriftMeters = 25.0
)

// Config tunes a Reconciler. Zero values take the defaults.
type Config struct {
	LegDuration             time.Duration
	StalenessWindow         time.Duration
	RouteTimeout            time.Duration
	RouteDriftMeters        float64
	AccuracyThresholdMeters float64
	// SimulationEnabled moves the partner along simulated legs. It is meant for
	// deployments without a live partner location feed.
	SimulationEnabled bool
}

func (c Config) withDefaults() Config {
	if c.LegDuration <= 0 {
		c.LegDuration = tracking.DefaultLegDuration
	}
	if c.StalenessWindow <= 0 {
		c.StalenessWindow = tracking.DefaultStalenessWindow
	}
	if c.RouteTimeout <= 0 {
		c.RouteTimeout = DefaultRouteTimeout
	}
	if c.RouteDriftMeters <= 0 {
		c.RouteDriftMeters = DefaultRouteDriftMeters
	}
	if c.AccuracyThresholdMeters <= 0 {
		c.AccuracyThresholdMeters = tracking.DefaultAccuracyThresholdMeters
	}
	return c
}

// Schedulable is what the periodic jobs drive.
type Schedulable interface {
	OrderID() kernel.UUID
	Tick(now time.Time)
	Refresh(ctx context.Context) error
}

// Scheduler runs the per-order status poll, and the simulation tick when simulate is set.
// The returned stop function removes both and is safe to call more than once.
type Scheduler interface {
	Schedule(target Schedulable, simulate bool) (stop func(), err error)
}

// Dependencies are the collaborators of a Reconciler. Only Orders is required.
type Dependencies struct {
	Orders      ports.OrderReader
	OrderFeed   ports.OrderChangeFeed
	PartnerFeed ports.PartnerLocationFeed
	PartnerSink ports.PartnerLocationSink
	// Routes computes drawn routes; nil draws straight lines.
	Routes    ports.RouteProvider
	Scheduler Scheduler
	Clock     func() time.Time
	Logger    *slog.Logger
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}
