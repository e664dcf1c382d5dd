package commands

import (
	"context"
	"time"

	"ordertrack/internal/core/domain/model/order"
)

// CancelOrderCommandHandler cancels orders that no partner holds yet.
// Once a partner claimed the order it returns order.ErrPartnerReleaseRequired.
type CancelOrderCommandHandler struct {
	uowFactory OrderUoWFactory
	now        Clock
}

// NewCancelOrderCommandHandler creates a handler for cancellations.
// A nil clock means time.Now.
func NewCancelOrderCommandHandler(uowFactory OrderUoWFactory, clock Clock) CancelOrderCommandHandler {
	if clock == nil {
		clock = time.Now
	}
	return CancelOrderCommandHandler{
		uowFactory: uowFactory,
		now:        clock,
	}
}

// Handle moves the order to Cancelled.
func (h CancelOrderCommandHandler) Handle(ctx context.Context, cmd CancelOrderCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	return advance(ctx, h.uowFactory, cmd.OrderID(), func(o *order.Order) error {
		return o.Cancel(cmd.Actor(), h.now())
	})
}
