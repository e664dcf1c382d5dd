package ports

import (
	"context"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"
	"ordertrack/internal/core/domain/model/tracking"
)

// Unsubscribe releases a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// OrderChangeFeed pushes "order changed" signals. Receivers re-read the order;
// the signal carries no state, so duplicates and reordering are harmless.
type OrderChangeFeed interface {
	Subscribe(ctx context.Context, orderID kernel.UUID, onChange func()) (Unsubscribe, error)
}

// SubscriptionHandle identifies one LocationSource watch.
type SubscriptionHandle uint64

// LocationSource delivers device fixes whenever the platform has one.
type LocationSource interface {
	// Watch starts delivering fixes to onFix and transport failures to onError.
	Watch(onFix func(kernel.LocationFix), onError func(error)) (SubscriptionHandle, error)

	// Stop ends the watch. Stopping an unknown or stopped handle is a no-op.
	Stop(handle SubscriptionHandle)
}

// PartnerLocationSink publishes a partner's own position. Best effort:
// callers log the error and never retry synchronously.
type PartnerLocationSink interface {
	Broadcast(ctx context.Context, partnerID kernel.UUID, coordinate kernel.Coordinate) error
}

// PartnerLocationFeed delivers the positions broadcast by one partner.
type PartnerLocationFeed interface {
	Subscribe(ctx context.Context, partnerID kernel.UUID, onUpdate func(kernel.Coordinate)) (Unsubscribe, error)
}

// RouteProvider computes a drivable route between two points.
type RouteProvider interface {
	Route(ctx context.Context, source, target kernel.Coordinate) (tracking.RouteSnapshot, error)
}

// OrderEventPublisher announces committed status changes to other services.
type OrderEventPublisher interface {
	PublishStatusChanged(ctx context.Context, aggregate *order.Order) error
}
