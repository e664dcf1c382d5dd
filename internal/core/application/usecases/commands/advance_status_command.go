package commands

import (
	"errors"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"
	"ordertrack/internal/pkg/guard"
)

var ErrAdvanceStatusCommandIsNotConstructed = errors.New(
	"AdvanceStatusCommand must be created via NewAdvanceStatusCommand constructor",
)

// AdvanceStatusCommand represents an actor moving an order to its next status.
// Rejection is an advance to order.Rejected; cancellation has its own command.
type AdvanceStatusCommand struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID
	actor   order.Actor
	next    order.Status

	guard guard.ConstructorGuard
}

// NewAdvanceStatusCommand creates a status change of orderID to next by actor.
func NewAdvanceStatusCommand(orderID kernel.UUID, actor order.Actor, next order.Status) (AdvanceStatusCommand, error) {
	cmd := AdvanceStatusCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setActor(actor),
		cmd.setNext(next),
	); err != nil {
		return AdvanceStatusCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c AdvanceStatusCommand) Validate() error {
	return c.guard.Validate(ErrAdvanceStatusCommandIsNotConstructed)
}

// OrderID returns the order to advance.
func (c AdvanceStatusCommand) OrderID() kernel.UUID {
	return c.orderID
}

// Actor returns who performs the transition.
func (c AdvanceStatusCommand) Actor() order.Actor {
	return c.actor
}

// Next returns the requested status.
func (c AdvanceStatusCommand) Next() order.Status {
	return c.next
}

func (c *AdvanceStatusCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	c.orderID = orderID
	return nil
}

func (c *AdvanceStatusCommand) setActor(actor order.Actor) error {
	if err := errors.Join(actor.Role.Validate(), actor.ID.Validate()); err != nil {
		return err
	}

	c.actor = actor
	return nil
}

func (c *AdvanceStatusCommand) setNext(next order.Status) error {
	if err := next.Validate(); err != nil {
		return err
	}

	c.next = next
	return nil
}
