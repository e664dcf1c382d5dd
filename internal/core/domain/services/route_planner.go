package services

import (
	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"
)

// Endpoints is the source and target of the active leg of an order.
type Endpoints struct {
	Source kernel.Coordinate
	Target kernel.Coordinate
}

// IsEqual compares both endpoints exactly.
func (e Endpoints) IsEqual(other Endpoints) bool {
	return e.Source.IsEqual(other.Source) && e.Target.IsEqual(other.Target)
}

// RoutePlanner decides which leg of an order is active, both for drawing the
// route and for driving the simulated partner.
//
// Route rules:
//   - Pending and final orders show no route
//   - Delivery before pickup: merchant -> partner once the partner position is known,
//     otherwise the whole trip merchant -> drop point as a preview
//   - Delivery after pickup: partner -> drop point, or merchant -> drop point without a position
//   - Pickup: customer -> merchant once the customer position is known
//
// Example:
//
//	planner := services.NewRoutePlanner()
//	ends, ok := planner.Route(o, partnerPos, nil)
//	if ok {
//	    snapshot, err := provider.Route(ctx, ends.Source, ends.Target)
//	}
type RoutePlanner struct{}

// NewRoutePlanner creates a RoutePlanner.
func NewRoutePlanner() RoutePlanner {
	return RoutePlanner{}
}

// Route returns the endpoints of the route to draw.
//
// Parameters:
//   - o: the order
//   - partner: the reconciled partner position, nil if unknown
//   - customer: the reconciled customer position, nil if unknown
func (RoutePlanner) Route(o *order.Order, partner, customer *kernel.Coordinate) (Endpoints, bool) {
	if o.Validate() != nil || o.Status() == order.Pending || o.IsFinal() {
		return Endpoints{}, false
	}

	merchant := o.PickupPoint()

	if o.Mode() == order.Pickup {
		if customer == nil {
			return Endpoints{}, false
		}
		return Endpoints{Source: *customer, Target: merchant}, true
	}

	drop := o.DropPoint()
	if drop == nil {
		return Endpoints{}, false
	}
	partnerKnown := o.HasPartner() && partner != nil

	if o.Status() == order.PickedUp {
		if partnerKnown {
			return Endpoints{Source: *partner, Target: *drop}, true
		}
		return Endpoints{Source: merchant, Target: *drop}, true
	}
	if partnerKnown {
		return Endpoints{Source: merchant, Target: *partner}, true
	}
	return Endpoints{Source: merchant, Target: *drop}, true
}

// SimulationTarget returns where a simulated partner heads for the current status:
// the pickup point while OnTheWay and the drop point once PickedUp.
func (RoutePlanner) SimulationTarget(o *order.Order) (kernel.Coordinate, bool) {
	if o.Validate() != nil || o.Mode() != order.Delivery {
		return kernel.Coordinate{}, false
	}
	switch o.Status() { //nolint:exhaustive // only moving statuses have a target
	case order.OnTheWay:
		return o.PickupPoint(), true
	case order.PickedUp:
		if drop := o.DropPoint(); drop != nil {
			return *drop, true
		}
	}
	return kernel.Coordinate{}, false
}
