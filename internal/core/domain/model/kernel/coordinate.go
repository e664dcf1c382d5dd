package kernel

import (
	"errors"
	"fmt"
	"math"

	"ordertrack/internal/pkg/errs"
	"ordertrack/internal/pkg/guard"
)

const (
	// LatitudeMin is the southernmost valid latitude in degrees.
	LatitudeMin = -90.0
	// LatitudeMax is the northernmost valid latitude in degrees.
	LatitudeMax = 90.0
	// LongitudeMin is the westernmost valid longitude in degrees.
	LongitudeMin = -180.0
	// LongitudeMax is the easternmost valid longitude in degrees.
	LongitudeMax = 180.0
)

// ErrCoordinateIsNotConstructed is returned when a Coordinate was not created through NewCoordinate.
var ErrCoordinateIsNotConstructed = errs.NewValueIsRequiredError(
	"coordinate must be created via NewCoordinate")

// Coordinate is a WGS84 point expressed in decimal degrees.
// It is an immutable value object: latitude lies in [-90, 90] and longitude in [-180, 180].
// The zero value is invalid and will fail validation.
//
// Example:
//
//	store, err := kernel.NewCoordinate(12.97, 77.59)
//	if err != nil {
//	    // handle validation error
//	}
//	fmt.Println(store) // Coordinate(12.970000,77.590000)
type Coordinate struct { //nolint:recvcheck //using for validation
	lat   float64
	lng   float64
	guard guard.ConstructorGuard
}

// NewCoordinate creates a Coordinate after range-checking both axes.
//
// Parameters:
//   - lat: latitude in degrees, between LatitudeMin and LatitudeMax inclusive
//   - lng: longitude in degrees, between LongitudeMin and LongitudeMax inclusive
//
// Returns:
//   - Coordinate: the validated point
//   - error: every axis violation joined together
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	c := Coordinate{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(c.setLat(lat), c.setLng(lng)); err != nil {
		return Coordinate{}, err
	}

	return c, nil
}

// Validate reports ErrCoordinateIsNotConstructed for zero values.
func (c Coordinate) Validate() error {
	return c.guard.Validate(ErrCoordinateIsNotConstructed)
}

// Lat returns the latitude in degrees.
func (c Coordinate) Lat() float64 {
	return c.lat
}

// Lng returns the longitude in degrees.
func (c Coordinate) Lng() float64 {
	return c.lng
}

// IsEqual reports whether both points have identical coordinates.
func (c Coordinate) IsEqual(other Coordinate) bool {
	return c.lat == other.lat && c.lng == other.lng
}

// IsNear reports whether both axes differ by no more than epsilonDegrees.
//
// Example:
//
//	a, _ := kernel.NewCoordinate(12.970000, 77.590000)
//	b, _ := kernel.NewCoordinate(12.970004, 77.590003)
//	a.IsNear(b, kernel.StationaryEpsilonDegrees) // true
func (c Coordinate) IsNear(other Coordinate, epsilonDegrees float64) bool {
	return math.Abs(c.lat-other.lat) <= epsilonDegrees && math.Abs(c.lng-other.lng) <= epsilonDegrees
}

// String implements fmt.Stringer.
func (c Coordinate) String() string {
	return fmt.Sprintf("Coordinate(%f,%f)", c.lat, c.lng)
}

// setLat sets the latitude with validation.
// Pointer receiver so constructors can validate in place, like the other value objects.
func (c *Coordinate) setLat(lat float64) error {
	if math.IsNaN(lat) {
		return errs.NewValueIsInvalidErrorWithCause("lat", errors.New("NaN is not a latitude"))
	}
	if lat < LatitudeMin || lat > LatitudeMax {
		return errs.NewValueIsOutOfRangeError("lat", lat, LatitudeMin, LatitudeMax)
	}

	c.lat = lat
	return nil
}

// setLng sets the longitude with validation.
func (c *Coordinate) setLng(lng float64) error {
	if math.IsNaN(lng) {
		return errs.NewValueIsInvalidErrorWithCause("lng", errors.New("NaN is not a longitude"))
	}
	if lng < LongitudeMin || lng > LongitudeMax {
		return errs.NewValueIsOutOfRangeError("lng", lng, LongitudeMin, LongitudeMax)
	}

	c.lng = lng
	return nil
}
