// Package kernel provides the shared value objects of the order tracking domain.
//
// The package includes:
//   - UUID: identifier value object for orders and actors
//   - Coordinate: validated WGS84 point
//   - LocationFix: a device position with its accuracy radius
//   - Bounds: bounding box used for camera fitting
//   - Distance, Bearing and Lerp: stateless geodesy helpers
//
// Value objects are immutable and safe for concurrent use. Their zero values
// are invalid and fail Validate.
package kernel
