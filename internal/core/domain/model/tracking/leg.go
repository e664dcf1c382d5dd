package tracking

import (
	"errors"
	"fmt"
	"time"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/pkg/errs"
	"ordertrack/internal/pkg/guard"
)

// DefaultLegDuration is how long a simulated leg takes from start to target.
const DefaultLegDuration = 20 * time.Second

// ErrLegIsNotConstructed is returned when a Leg was not created through NewLeg.
var ErrLegIsNotConstructed = errs.NewValueIsRequiredError("leg must be created via NewLeg")

// Leg is one simulated segment of a trip: progress grows linearly from 0 at
// startedAt to 1 after duration, and the position follows kernel.Lerp.
//
// Once complete the position is clamped to the target. A paused leg keeps
// the progress reached at the pause time until a new leg replaces it.
type Leg struct {
	start     kernel.Coordinate
	target    kernel.Coordinate
	startedAt time.Time
	duration  time.Duration
	pausedAt  time.Time
	guard     guard.ConstructorGuard
}

// NewLeg validates the endpoints and a positive duration.
func NewLeg(start, target kernel.Coordinate, startedAt time.Time, duration time.Duration) (Leg, error) {
	var durationErr error
	if duration <= 0 {
		durationErr = errs.NewValueIsInvalidErrorWithCause("leg duration", fmt.Errorf("%s is not positive", duration))
	}
	if err := errors.Join(start.Validate(), target.Validate(), durationErr); err != nil {
		return Leg{}, err
	}

	return Leg{
		start:     start,
		target:    target,
		startedAt: startedAt,
		duration:  duration,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// Validate reports ErrLegIsNotConstructed for zero values.
func (l Leg) Validate() error {
	return l.guard.Validate(ErrLegIsNotConstructed)
}

// Start returns where the leg began.
func (l Leg) Start() kernel.Coordinate { return l.start }

// Target returns where the leg ends.
func (l Leg) Target() kernel.Coordinate { return l.target }

// StartedAt returns the leg start time.
func (l Leg) StartedAt() time.Time { return l.startedAt }

// Duration returns the configured leg duration.
func (l Leg) Duration() time.Duration { return l.duration }

// IsPaused reports whether a live position took over this leg.
func (l Leg) IsPaused() bool { return !l.pausedAt.IsZero() }

// Pause freezes progress at now. Pausing twice keeps the first pause time.
func (l Leg) Pause(now time.Time) Leg {
	if !l.IsPaused() {
		l.pausedAt = now
	}
	return l
}

// ProgressAt returns progress in [0, 1] at the given time.
func (l Leg) ProgressAt(now time.Time) float64 {
	if l.IsPaused() && now.After(l.pausedAt) {
		now = l.pausedAt
	}
	elapsed := now.Sub(l.startedAt)
	switch {
	case elapsed <= 0:
		return 0
	case elapsed >= l.duration:
		return 1
	}
	return float64(elapsed) / float64(l.duration)
}

// PositionAt returns the simulated position; exactly Target once complete.
func (l Leg) PositionAt(now time.Time) kernel.Coordinate {
	return kernel.Lerp(l.start, l.target, l.ProgressAt(now))
}
