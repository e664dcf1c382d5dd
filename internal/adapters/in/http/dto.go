package http

import (
	"time"

	"ordertrack/internal/core/application/usecases/queries"
	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"
	"ordertrack/internal/core/domain/services"
)

// Error is the body of every non-2xx response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinate) toDomain() (kernel.Coordinate, error) {
	return kernel.NewCoordinate(c.Lat, c.Lng)
}

func fromCoordinate(c kernel.Coordinate) Coordinate {
	return Coordinate{Lat: c.Lat(), Lng: c.Lng()}
}

type NewOrder struct {
	Mode       string      `json:"mode"`
	CustomerID string      `json:"customer_id"`
	MerchantID string      `json:"merchant_id"`
	Pickup     Coordinate  `json:"pickup"`
	Drop       *Coordinate `json:"drop,omitempty"`
	TotalMinor int64       `json:"total_minor"`
}

func (n NewOrder) toDraft() (order.Draft, error) {
	mode, err := order.ModeFromCode(n.Mode)
	if err != nil {
		return order.Draft{}, err
	}
	customerID, err := kernel.UUIDFromString(n.CustomerID)
	if err != nil {
		return order.Draft{}, err
	}
	merchantID, err := kernel.UUIDFromString(n.MerchantID)
	if err != nil {
		return order.Draft{}, err
	}
	pickup, err := n.Pickup.toDomain()
	if err != nil {
		return order.Draft{}, err
	}

	draft := order.Draft{
		Mode:        mode,
		CustomerID:  customerID,
		MerchantID:  merchantID,
		PickupPoint: pickup,
		TotalMinor:  n.TotalMinor,
	}
	if n.Drop != nil {
		drop, dropErr := n.Drop.toDomain()
		if dropErr != nil {
			return order.Draft{}, dropErr
		}
		draft.DropPoint = &drop
	}
	return draft, nil
}

type StatusChange struct {
	Status string `json:"status"`
}

type Order struct {
	ID             string      `json:"id"`
	Mode           string      `json:"mode"`
	Status         string      `json:"status"`
	StatusLabel    string      `json:"status_label"`
	NextStatuses   []string    `json:"next_statuses"`
	CustomerID     string      `json:"customer_id"`
	MerchantID     string      `json:"merchant_id"`
	PartnerID      *string     `json:"partner_id,omitempty"`
	Pickup         Coordinate  `json:"pickup"`
	Drop           *Coordinate `json:"drop,omitempty"`
	DistanceMeters float64     `json:"distance_meters"`
	TotalMinor     int64       `json:"total_minor"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func fromResponse(r queries.OrderResponse) Order {
	out := Order{
		ID:             r.ID.String(),
		Mode:           r.Mode.Code(),
		Status:         r.Status.Code(),
		StatusLabel:    r.StatusLabel,
		NextStatuses:   statusCodes(r.NextStatuses),
		CustomerID:     r.CustomerID.String(),
		MerchantID:     r.MerchantID.String(),
		Pickup:         fromCoordinate(r.PickupPoint),
		DistanceMeters: r.DistanceMeters,
		TotalMinor:     r.TotalMinor,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.PartnerID != nil {
		s := r.PartnerID.String()
		out.PartnerID = &s
	}
	if r.DropPoint != nil {
		d := fromCoordinate(*r.DropPoint)
		out.Drop = &d
	}
	return out
}

func statusCodes(statuses []order.Status) []string {
	codes := make([]string, 0, len(statuses))
	for _, s := range statuses {
		codes = append(codes, s.Code())
	}
	return codes
}

func fromOrder(o *order.Order) Order {
	out := Order{
		ID:           o.ID().String(),
		Mode:         o.Mode().Code(),
		Status:       o.Status().Code(),
		StatusLabel:  o.Status().String(),
		NextStatuses: statusCodes(order.NextStatuses(o.Mode(), o.Status())),
		CustomerID:   o.CustomerID().String(),
		MerchantID:   o.MerchantID().String(),
		Pickup:       fromCoordinate(o.PickupPoint()),
		TotalMinor:   o.TotalMinor(),
		CreatedAt:    o.CreatedAt(),
		UpdatedAt:    o.UpdatedAt(),
	}
	if partnerID := o.PartnerID(); partnerID != nil {
		s := partnerID.String()
		out.PartnerID = &s
	}
	if drop := o.DropPoint(); drop != nil {
		d := fromCoordinate(*drop)
		out.Drop = &d
		out.DistanceMeters = kernel.Distance(o.PickupPoint(), *drop)
	}
	return out
}

type Marker struct {
	Kind           string     `json:"kind"`
	Position       Coordinate `json:"position"`
	Bearing        float64    `json:"bearing"`
	Source         string     `json:"source,omitempty"`
	Stale          bool       `json:"stale"`
	LowConfidence  bool       `json:"low_confidence"`
	AccuracyMeters float64    `json:"accuracy_meters,omitempty"`
}

type Route struct {
	Points         []Coordinate `json:"points"`
	DistanceMeters float64      `json:"distance_meters"`
	Label          string       `json:"label"`
}

type Bounds struct {
	SouthWest Coordinate `json:"south_west"`
	NorthEast Coordinate `json:"north_east"`
}

type Camera struct {
	Mode    string     `json:"mode"`
	Target  Coordinate `json:"target"`
	Zoom    float64    `json:"zoom"`
	Bounds  *Bounds    `json:"bounds,omitempty"`
	Padding int        `json:"padding,omitempty"`
	MaxZoom float64    `json:"max_zoom,omitempty"`
}

type Scene struct {
	OrderID     string   `json:"order_id"`
	Status      string   `json:"status"`
	StatusLabel string   `json:"status_label"`
	Markers     []Marker `json:"markers"`
	Route       *Route   `json:"route,omitempty"`
	Camera      Camera   `json:"camera"`
}

func fromScene(s services.Scene) Scene {
	out := Scene{
		OrderID:     s.OrderID.String(),
		Status:      s.Status.Code(),
		StatusLabel: s.StatusLabel,
		Markers:     make([]Marker, 0, len(s.Markers)),
		Camera: Camera{
			Mode:    "follow",
			Target:  fromCoordinate(s.Camera.Target),
			Zoom:    s.Camera.Zoom,
			Padding: s.Camera.Padding,
			MaxZoom: s.Camera.MaxZoom,
		},
	}
	if s.Camera.Mode == services.CameraFree {
		out.Camera.Mode = "free"
	}
	if b := s.Camera.Bounds; b != nil {
		out.Camera.Bounds = &Bounds{SouthWest: fromCoordinate(b.SouthWest), NorthEast: fromCoordinate(b.NorthEast)}
	}

	for _, m := range s.Markers {
		marker := Marker{
			Kind:           m.Kind.String(),
			Position:       fromCoordinate(m.Coordinate),
			Bearing:        m.Bearing,
			Stale:          m.Stale,
			LowConfidence:  m.LowConfidence,
			AccuracyMeters: m.AccuracyMeters,
		}
		if m.Kind == services.PartnerVehicle || m.Kind == services.CustomerSelf {
			marker.Source = m.Source.String()
		}
		out.Markers = append(out.Markers, marker)
	}

	if s.Route != nil {
		route := &Route{
			Points:         make([]Coordinate, 0, len(s.Route.Points)),
			DistanceMeters: s.Route.DistanceMeters,
			Label:          s.Route.Label,
		}
		for _, p := range s.Route.Points {
			route.Points = append(route.Points, fromCoordinate(p))
		}
		out.Route = route
	}
	return out
}
