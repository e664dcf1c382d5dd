package kernel

import (
	"errors"
	"fmt"
	"math"
	"time"

	"ordertrack/internal/pkg/errs"
	"ordertrack/internal/pkg/guard"
)

// ErrLocationFixIsNotConstructed is returned when a LocationFix was not created through NewLocationFix.
var ErrLocationFixIsNotConstructed = errs.NewValueIsRequiredError(
	"location fix must be created via NewLocationFix")

// LocationFix is a single position reported by a device, with its horizontal
// accuracy radius in meters and the device time it was captured at.
type LocationFix struct {
	coordinate     Coordinate
	accuracyMeters float64
	capturedAt     time.Time
	guard          guard.ConstructorGuard
}

// NewLocationFix validates and creates a LocationFix.
// The coordinate must be constructed and the accuracy a non-negative number.
// A zero capturedAt is allowed; some platforms do not stamp their fixes.
func NewLocationFix(coordinate Coordinate, accuracyMeters float64, capturedAt time.Time) (LocationFix, error) {
	fix := LocationFix{
		capturedAt: capturedAt,
		guard:      guard.NewConstructorGuard(),
	}

	if err := errors.Join(fix.setCoordinate(coordinate), fix.setAccuracy(accuracyMeters)); err != nil {
		return LocationFix{}, err
	}

	return fix, nil
}

// Validate reports ErrLocationFixIsNotConstructed for zero values.
func (f LocationFix) Validate() error {
	return f.guard.Validate(ErrLocationFixIsNotConstructed)
}

// Coordinate returns the reported position.
func (f LocationFix) Coordinate() Coordinate {
	return f.coordinate
}

// AccuracyMeters returns the radius of the 68% confidence circle.
func (f LocationFix) AccuracyMeters() float64 {
	return f.accuracyMeters
}

// CapturedAt returns the device timestamp. It is informational only.
func (f LocationFix) CapturedAt() time.Time {
	return f.capturedAt
}

func (f *LocationFix) setCoordinate(c Coordinate) error {
	if err := c.Validate(); err != nil {
		return err
	}
	f.coordinate = c
	return nil
}

func (f *LocationFix) setAccuracy(accuracy float64) error {
	if math.IsNaN(accuracy) || math.IsInf(accuracy, 0) || accuracy < 0 {
		return errs.NewValueIsInvalidErrorWithCause(
			"accuracy", fmt.Errorf("%v is not a non-negative number of meters", accuracy))
	}
	f.accuracyMeters = accuracy
	return nil
}
