// Package ports defines the contracts between the order tracking core and its collaborators.
// Storage, transport and routing live behind these interfaces so the core can be
// tested with mocks and run against either postgres or the in-memory adapters.
package ports

import (
	"context"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"
)

// OrderRepository defines the persistence contract for order aggregates.
// Every state change is a conditional write so that concurrent writers are
// serialized by the store rather than by the caller.
type OrderRepository interface {
	// Add persists a new order aggregate.
	Add(ctx context.Context, aggregate *order.Order) error

	// Get retrieves an order aggregate by its unique identifier.
	// Returns errs.ObjectNotFoundError when the order does not exist.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// UpdateStatus stores the aggregate's status only if the stored status still equals expected.
	// A lost race returns errs.ConflictError and leaves the stored order untouched.
	// Cancelled and Rejected also need no stored partner, else order.ErrPartnerReleaseRequired.
	UpdateStatus(ctx context.Context, aggregate *order.Order, expected order.Status) error

	// Claim stores the aggregate's partner only if the stored order has none.
	// A lost race returns order.ErrAlreadyAssigned; it is not retryable.
	Claim(ctx context.Context, aggregate *order.Order) error

	// GetAllAvailableForClaim lists Delivery orders a partner may claim, newest first.
	GetAllAvailableForClaim(ctx context.Context) ([]*order.Order, error)
}

// OrderReader is the read-only side of the order store used by queries and pollers.
// It runs outside any unit of work.
type OrderReader interface {
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)
	GetAllAvailableForClaim(ctx context.Context) ([]*order.Order, error)
}
