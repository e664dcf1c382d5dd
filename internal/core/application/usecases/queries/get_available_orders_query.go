// Package queries contains read-only operations over orders.
package queries

import (
	"errors"
	"time"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"
	"ordertrack/internal/pkg/guard"
)

var ErrGetAvailableOrdersQueryIsNotConstructed = errors.New(
	"GetAvailableOrdersQuery must be created via NewGetAvailableOrdersQuery constructor",
)

// GetAvailableOrdersQuery lists Delivery orders a partner may claim.
// Partners poll it on an interval until a push feed tells them otherwise.
//
// Example:
//
//	query := NewGetAvailableOrdersQuery()
//	orders, err := handler.Handle(ctx, query)
//	if err != nil {
//	    return fmt.Errorf("failed to list available orders: %w", err)
//	}
type GetAvailableOrdersQuery struct {
	guard guard.ConstructorGuard
}

// NewGetAvailableOrdersQuery creates the query. It has no parameters.
func NewGetAvailableOrdersQuery() GetAvailableOrdersQuery {
	return GetAvailableOrdersQuery{guard: guard.NewConstructorGuard()}
}

// Validate ensures the query was created through the constructor.
func (q GetAvailableOrdersQuery) Validate() error {
	return q.guard.Validate(ErrGetAvailableOrdersQueryIsNotConstructed)
}

// OrderResponse is the read model of one order.
type OrderResponse struct {
	ID          kernel.UUID
	Mode        order.Mode
	Status      order.Status
	StatusLabel string
	// NextStatuses are the forward statuses some role may move the order to.
	NextStatuses []order.Status
	CustomerID   kernel.UUID
	MerchantID   kernel.UUID
	PartnerID    *kernel.UUID
	PickupPoint  kernel.Coordinate
	DropPoint    *kernel.Coordinate
	// DistanceMeters is the straight-line pickup to drop distance, zero for Pickup orders.
	DistanceMeters float64
	TotalMinor     int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func toResponse(o *order.Order) OrderResponse {
	resp := OrderResponse{
		ID:           o.ID(),
		Mode:         o.Mode(),
		Status:       o.Status(),
		StatusLabel:  o.Status().String(),
		NextStatuses: order.NextStatuses(o.Mode(), o.Status()),
		CustomerID:   o.CustomerID(),
		MerchantID:   o.MerchantID(),
		PartnerID:    o.PartnerID(),
		PickupPoint:  o.PickupPoint(),
		DropPoint:    o.DropPoint(),
		TotalMinor:   o.TotalMinor(),
		CreatedAt:    o.CreatedAt(),
		UpdatedAt:    o.UpdatedAt(),
	}
	if resp.DropPoint != nil {
		resp.DistanceMeters = kernel.Distance(resp.PickupPoint, *resp.DropPoint)
	}
	return resp
}
