package order

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not created through
	// NewOrder or RestoreOrder.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder constructor")

	// ErrInvalidTransition is the sentinel behind InvalidTransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrActorNotPermitted is the sentinel behind ActorNotPermittedError.
	ErrActorNotPermitted = errors.New("actor is not permitted")

	// ErrAlreadyAssigned is returned to a partner whose claim lost: another partner owns the order.
	ErrAlreadyAssigned = errors.New("order is already assigned")

	// ErrNotClaimable is returned when the order mode or status does not accept claims.
	ErrNotClaimable = errors.New("order is not claimable")

	// ErrNotAssignedPartner is returned when a partner acts on an order assigned to someone else.
	ErrNotAssignedPartner = errors.New("actor is not the assigned partner")

	// ErrPartnerRequired is returned when a partner leg transition happens on an unclaimed order.
	ErrPartnerRequired = errors.New("order has no assigned partner")

	// ErrPartnerReleaseRequired is returned when cancellation is attempted after a partner
	// took the order. Releasing the partner is handled outside the state machine.
	ErrPartnerReleaseRequired = errors.New("order requires partner release before cancellation")
)

// InvalidTransitionError identifies an edge that does not exist in the transition table.
type InvalidTransitionError struct {
	Mode Mode
	From Status
	To   Status
}

// NewInvalidTransitionError creates an InvalidTransitionError.
func NewInvalidTransitionError(mode Mode, from, to Status) *InvalidTransitionError {
	return &InvalidTransitionError{Mode: mode, From: from, To: to}
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: %s %s -> %s", ErrInvalidTransition, e.Mode, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ActorNotPermittedError identifies an existing edge the given role may not take.
type ActorNotPermittedError struct {
	Role Role
	From Status
	To   Status
}

// NewActorNotPermittedError creates an ActorNotPermittedError.
func NewActorNotPermittedError(role Role, from, to Status) *ActorNotPermittedError {
	return &ActorNotPermittedError{Role: role, From: from, To: to}
}

func (e *ActorNotPermittedError) Error() string {
	return fmt.Sprintf("%s: %s cannot move order %s -> %s", ErrActorNotPermitted, e.Role, e.From, e.To)
}

func (e *ActorNotPermittedError) Unwrap() error {
	return ErrActorNotPermitted
}
