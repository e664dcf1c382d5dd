package commands

import (
	"context"
	"time"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"
)

// AdvanceStatusCommandHandler applies one state machine edge.
//
// The stored status is compared and swapped: when another writer moved the
// order since it was read, the handler returns errs.ConflictError and the
// caller re-reads before trying again.
type AdvanceStatusCommandHandler struct {
	uowFactory OrderUoWFactory
	now        Clock
}

// NewAdvanceStatusCommandHandler creates a handler for status changes.
// A nil clock means time.Now.
func NewAdvanceStatusCommandHandler(uowFactory OrderUoWFactory, clock Clock) AdvanceStatusCommandHandler {
	if clock == nil {
		clock = time.Now
	}
	return AdvanceStatusCommandHandler{
		uowFactory: uowFactory,
		now:        clock,
	}
}

// Handle moves the order to the requested status.
func (h AdvanceStatusCommandHandler) Handle(ctx context.Context, cmd AdvanceStatusCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	return advance(ctx, h.uowFactory, cmd.OrderID(), func(o *order.Order) error {
		return o.Advance(cmd.Actor(), cmd.Next(), h.now())
	})
}

// advance runs mutate on a freshly loaded order and stores the new status
// conditionally on the status it was loaded with.
func advance(
	ctx context.Context,
	uowFactory OrderUoWFactory,
	orderID kernel.UUID,
	mutate func(o *order.Order) error,
) (*order.Order, error) {
	uow := uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.OrderRepository()
	o, err := repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	expected := o.Status()
	if err = mutate(o); err != nil {
		return nil, err
	}

	if err = repo.UpdateStatus(ctx, o, expected); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	return o, nil
}
