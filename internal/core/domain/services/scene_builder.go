package services

import (
	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"
	"ordertrack/internal/core/domain/model/tracking"
)

const (
	// DefaultCenterLat and DefaultCenterLng place the camera when nothing is known yet.
	DefaultCenterLat = 12.9716
	DefaultCenterLng = 77.5946
	// DefaultZoom is the street-level zoom used when centering on a single point.
	DefaultZoom = 17.0
	// RouteFitPadding is the pixel padding around a fitted route.
	RouteFitPadding = 60
	// RouteFitMaxZoom caps the zoom when fitting a short route.
	RouteFitMaxZoom = 16.0
)

// MarkerKind selects the icon a renderer draws.
type MarkerKind int

const (
	// MerchantPin marks the store.
	MerchantPin MarkerKind = iota + 1
	// PartnerVehicle is the directional partner marker.
	PartnerVehicle
	// CustomerSelf is the customer's own position with its accuracy circle.
	CustomerSelf
	// DropPin marks the delivery address for the customer and the partner.
	DropPin
)

func (k MarkerKind) String() string {
	switch k {
	case MerchantPin:
		return "merchant"
	case PartnerVehicle:
		return "partner"
	case CustomerSelf:
		return "self"
	case DropPin:
		return "drop"
	}
	return "unknown"
}

// Marker is one map marker.
type Marker struct {
	Kind           MarkerKind
	Coordinate     kernel.Coordinate
	Bearing        float64
	Source         tracking.Source
	Stale          bool
	LowConfidence  bool
	AccuracyMeters float64
}

// RouteLine is the route polyline with its distance label.
type RouteLine struct {
	Points         []kernel.Coordinate
	DistanceMeters float64
	Label          string
}

// CameraMode tells the renderer whether to move the camera.
type CameraMode int

const (
	// CameraFollow re-centers on Target, fitting Bounds when set.
	CameraFollow CameraMode = iota + 1
	// CameraFree leaves the camera where the user panned it.
	CameraFree
)

// Camera is the camera instruction of a scene.
type Camera struct {
	Mode    CameraMode
	Target  kernel.Coordinate
	Zoom    float64
	Bounds  *kernel.Bounds
	Padding int
	MaxZoom float64
}

// Scene is the renderable state of one order for one viewer.
type Scene struct {
	OrderID     kernel.UUID
	Status      order.Status
	StatusLabel string
	Markers     []Marker
	Route       *RouteLine
	Camera      Camera
}

// Marker returns the first marker of the given kind.
func (s Scene) Marker(kind MarkerKind) (Marker, bool) {
	for _, m := range s.Markers {
		if m.Kind == kind {
			return m, true
		}
	}
	return Marker{}, false
}

// SceneInput is everything SceneBuilder needs, already reconciled.
type SceneInput struct {
	Order  *order.Order
	Viewer order.Actor
	// Positions holds the selected position per role (see tracking.PositionSet.Select).
	Positions map[order.Role]tracking.ActorPosition
	Route     *tracking.RouteSnapshot
	Following bool
}

// SceneBuilder turns reconciled order state into a Scene. It is pure and has no state.
//
// Marker rules:
//   - the merchant pin is shown until a partner claims the order, and always for Pickup
//   - the partner vehicle is shown only for claimed Delivery orders with a known position
//   - the customer sees its own position as CustomerSelf
//   - Delivery orders show the drop pin
//
// Camera rules in follow mode, first match wins:
//   - a partner viewer centers on its own vehicle
//   - a customer viewer centers on the partner vehicle, then on itself
//   - the merchant pin
//   - the default center at DefaultZoom
//
// When a route is drawn the follow camera also fits its bounds.
type SceneBuilder struct {
	defaultCenter kernel.Coordinate
}

// NewSceneBuilder creates a SceneBuilder with the default map center.
func NewSceneBuilder() SceneBuilder {
	center, _ := kernel.NewCoordinate(DefaultCenterLat, DefaultCenterLng)
	return SceneBuilder{defaultCenter: center}
}

// Build derives the scene.
func (b SceneBuilder) Build(in SceneInput) Scene {
	if in.Order.Validate() != nil {
		return Scene{Camera: b.followAt(b.defaultCenter, nil, in.Following)}
	}

	o := in.Order
	scene := Scene{
		OrderID:     o.ID(),
		Status:      o.Status(),
		StatusLabel: o.Status().String(),
	}

	partner, hasPartner := b.partnerPosition(in)
	self, hasSelf := in.Positions[order.Customer]
	hasSelf = hasSelf && in.Viewer.Role == order.Customer

	if !o.HasPartner() || o.Mode() == order.Pickup {
		scene.Markers = append(scene.Markers, Marker{Kind: MerchantPin, Coordinate: o.PickupPoint()})
	}
	if drop := o.DropPoint(); drop != nil && (in.Viewer.Role == order.Customer || in.Viewer.Role == order.Partner) {
		scene.Markers = append(scene.Markers, Marker{Kind: DropPin, Coordinate: *drop})
	}
	if hasPartner {
		scene.Markers = append(scene.Markers, positionMarker(PartnerVehicle, partner))
	}
	if hasSelf {
		scene.Markers = append(scene.Markers, positionMarker(CustomerSelf, self))
	}

	var bounds *kernel.Bounds
	if in.Route != nil && !in.Route.IsEmpty() && o.Status() != order.Pending && !o.IsFinal() {
		scene.Route = &RouteLine{
			Points:         in.Route.Points(),
			DistanceMeters: in.Route.DistanceMeters(),
			Label:          in.Route.DistanceLabel(),
		}
		if bb, ok := in.Route.Bounds(); ok {
			bounds = &bb
		}
	}

	var focus kernel.Coordinate
	switch {
	case hasPartner && (in.Viewer.Role == order.Partner || in.Viewer.Role == order.Customer):
		focus = partner.Coordinate
	case hasSelf:
		focus = self.Coordinate
	default:
		focus = o.PickupPoint()
	}
	scene.Camera = b.followAt(focus, bounds, in.Following)

	return scene
}

func (b SceneBuilder) partnerPosition(in SceneInput) (tracking.ActorPosition, bool) {
	o := in.Order
	if o.Mode() != order.Delivery || !o.HasPartner() {
		return tracking.ActorPosition{}, false
	}
	p, ok := in.Positions[order.Partner]
	return p, ok
}

func (b SceneBuilder) followAt(focus kernel.Coordinate, bounds *kernel.Bounds, following bool) Camera {
	if !following {
		return Camera{Mode: CameraFree}
	}
	if focus.Validate() != nil {
		focus = b.defaultCenter
	}
	cam := Camera{Mode: CameraFollow, Target: focus, Zoom: DefaultZoom}
	if bounds != nil {
		cam.Bounds = bounds
		cam.Padding = RouteFitPadding
		cam.MaxZoom = RouteFitMaxZoom
	}
	return cam
}

func positionMarker(kind MarkerKind, p tracking.ActorPosition) Marker {
	return Marker{
		Kind:           kind,
		Coordinate:     p.Coordinate,
		Bearing:        p.Bearing,
		Source:         p.Source,
		Stale:          p.Stale,
		LowConfidence:  p.LowConfidence,
		AccuracyMeters: p.AccuracyMeters,
	}
}
