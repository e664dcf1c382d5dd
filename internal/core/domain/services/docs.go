// Package services provides stateless domain services of order tracking.
//
// The package includes:
//   - RoutePlanner: picks the active leg endpoints for routes and simulation
//   - SceneBuilder: turns an order, reconciled positions and a route into a renderable Scene
//   - CameraLatch: the follow/free camera latch of a map view
//
// SceneBuilder and RoutePlanner are pure; CameraLatch is the only stateful
// type and is safe for concurrent use.
package services
