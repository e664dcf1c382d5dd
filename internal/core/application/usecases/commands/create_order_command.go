package commands

import (
	"errors"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"
	"ordertrack/internal/pkg/guard"
)

var ErrCreateOrderCommandIsNotConstructed = errors.New(
	"CreateOrderCommand must be created via NewCreateOrderCommand constructor",
)

// CreateOrderCommand represents a checkout that places a new order.
// The draft is checked again by order.NewOrder; the command only rejects
// what is obviously incomplete.
//
// Example:
//
//	drop, _ := kernel.NewCoordinate(12.96, 77.60)
//	cmd, err := NewCreateOrderCommand(kernel.NewUUID(), order.Draft{
//	    Mode:        order.Delivery,
//	    CustomerID:  customerID,
//	    MerchantID:  merchantID,
//	    PickupPoint: storeLocation,
//	    DropPoint:   &drop,
//	})
//	if err != nil {
//	    return fmt.Errorf("invalid checkout: %w", err)
//	}
//	o, err := handler.Handle(ctx, cmd)
type CreateOrderCommand struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID
	draft   order.Draft

	guard guard.ConstructorGuard
}

// NewCreateOrderCommand creates a command to place an order with the given identifier.
func NewCreateOrderCommand(orderID kernel.UUID, draft order.Draft) (CreateOrderCommand, error) {
	cmd := CreateOrderCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setDraft(draft),
	); err != nil {
		return CreateOrderCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c CreateOrderCommand) Validate() error {
	return c.guard.Validate(ErrCreateOrderCommandIsNotConstructed)
}

// OrderID returns the identifier of the order to create.
func (c CreateOrderCommand) OrderID() kernel.UUID {
	return c.orderID
}

// Draft returns the checkout data.
func (c CreateOrderCommand) Draft() order.Draft {
	return c.draft
}

func (c *CreateOrderCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	c.orderID = orderID
	return nil
}

func (c *CreateOrderCommand) setDraft(draft order.Draft) error {
	if err := errors.Join(
		draft.Mode.Validate(),
		draft.CustomerID.Validate(),
		draft.MerchantID.Validate(),
		draft.PickupPoint.Validate(),
	); err != nil {
		return err
	}

	c.draft = draft
	return nil
}
