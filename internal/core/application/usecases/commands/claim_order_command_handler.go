package commands

import (
	"context"
	"time"

	"ordertrack/internal/core/domain/model/order"
)

// ClaimOrderCommandHandler assigns a partner to an order.
//
// The aggregate check rejects claims that are already lost locally; the
// repository's "set partner only if null" write decides races between
// partners. Either way the loser gets order.ErrAlreadyAssigned and should
// not retry.
//
// Example:
//
//	o, err := handler.Handle(ctx, cmd)
//	switch {
//	case errors.Is(err, order.ErrAlreadyAssigned):
//	    // order taken
//	case err != nil:
//	    return err
//	}
type ClaimOrderCommandHandler struct {
	uowFactory OrderUoWFactory
	now        Clock
}

// NewClaimOrderCommandHandler creates a handler for partner claims.
// A nil clock means time.Now.
func NewClaimOrderCommandHandler(uowFactory OrderUoWFactory, clock Clock) ClaimOrderCommandHandler {
	if clock == nil {
		clock = time.Now
	}
	return ClaimOrderCommandHandler{
		uowFactory: uowFactory,
		now:        clock,
	}
}

// Handle loads the order, claims it and conditionally stores the partner.
func (h ClaimOrderCommandHandler) Handle(ctx context.Context, cmd ClaimOrderCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.OrderRepository()
	o, err := repo.Get(ctx, cmd.OrderID())
	if err != nil {
		return nil, err
	}

	if err = o.Claim(cmd.PartnerID(), h.now()); err != nil {
		return nil, err
	}

	if err = repo.Claim(ctx, o); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	return o, nil
}
