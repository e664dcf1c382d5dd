package tracking

import (
	"time"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"
)

// DefaultStalenessWindow is how long a live position stays fresh without a new fix.
const DefaultStalenessWindow = 30 * time.Second

// ActorPosition is the last known position of one actor of one order.
// Values are snapshots: the reconciler hands out copies and never mutates them afterwards.
type ActorPosition struct {
	OrderID    kernel.UUID
	Role       order.Role
	Coordinate kernel.Coordinate
	Source     Source
	// UpdatedAt is the arrival time on the reconciler clock, not the device capture time.
	UpdatedAt      time.Time
	AccuracyMeters float64
	// LowConfidence marks a first fix admitted despite poor accuracy.
	LowConfidence bool
	// Bearing orients directional markers, degrees in [0, 360).
	Bearing float64
	// Stale is set on read when a live value outlived the staleness window.
	Stale bool
}

// IsFresh reports whether the position was updated within window before now.
func (p ActorPosition) IsFresh(now time.Time, window time.Duration) bool {
	return now.Sub(p.UpdatedAt) <= window
}

// PositionSet holds the reconciled candidates for one role of one order.
// At most one value per Source is kept; Select picks the one to render.
type PositionSet struct {
	Live       *ActorPosition
	Optimistic *ActorPosition
	Simulated  *ActorPosition
}

// Select applies the marker precedence:
// fresh live, then local optimistic, then simulated, then stale live (flagged), else none.
func (s PositionSet) Select(now time.Time, window time.Duration) (ActorPosition, bool) {
	if s.Live != nil && s.Live.IsFresh(now, window) {
		return *s.Live, true
	}
	if s.Optimistic != nil {
		return *s.Optimistic, true
	}
	if s.Simulated != nil {
		return *s.Simulated, true
	}
	if s.Live != nil {
		p := *s.Live
		p.Stale = true
		return p, true
	}
	return ActorPosition{}, false
}

// Latest returns the most recently written candidate regardless of source,
// used as the starting point of a new simulation leg.
func (s PositionSet) Latest() (ActorPosition, bool) {
	var best *ActorPosition
	for _, p := range []*ActorPosition{s.Live, s.Optimistic, s.Simulated} {
		if p != nil && (best == nil || !p.UpdatedAt.Before(best.UpdatedAt)) {
			best = p
		}
	}
	if best == nil {
		return ActorPosition{}, false
	}
	return *best, true
}
