package order

import "slices"

type edge struct {
	mode Mode
	from Status
	to   Status
}

// forwardRights lists the forward edges per mode and the roles allowed to take them.
var forwardRights = map[edge][]Role{
	{Delivery, Pending, Accepted}:    {Merchant},
	{Delivery, Accepted, Preparing}:  {Merchant},
	{Delivery, Preparing, OnTheWay}:  {Merchant},
	{Delivery, OnTheWay, PickedUp}:   {Partner},
	{Delivery, PickedUp, Delivered}:  {Partner},
	{Pickup, Pending, Accepted}:      {Merchant},
	{Pickup, Accepted, Preparing}:    {Merchant},
	{Pickup, Preparing, Ready}:       {Merchant},
	{Pickup, Ready, PickedUp}:        {Merchant, Customer},
}

// abortRights lists who may move a live order into each abort status.
var abortRights = map[Status][]Role{
	Cancelled: {Customer, Merchant},
	Rejected:  {Merchant},
}

// CheckTransition validates a status change against the transition table
// without looking at the order itself (partner assignment is checked by Order).
//
// Checks run in this order:
//  1. the edge must exist for the mode, otherwise *InvalidTransitionError
//  2. the role must hold the right, otherwise *ActorNotPermittedError
//  3. aborts of a dispatched DELIVERY order return ErrPartnerReleaseRequired
//
// Example:
//
//	err := order.CheckTransition(order.Delivery, order.Delivered, order.Accepted, order.Merchant)
//	errors.Is(err, order.ErrInvalidTransition) // true
func CheckTransition(mode Mode, from, to Status, role Role) error {
	if !IsModeStatus(mode, from) || !IsModeStatus(mode, to) {
		return NewInvalidTransitionError(mode, from, to)
	}

	if roles, ok := abortRights[to]; ok {
		if from.IsFinal(mode) {
			return NewInvalidTransitionError(mode, from, to)
		}
		if !slices.Contains(roles, role) {
			return NewActorNotPermittedError(role, from, to)
		}
		if mode == Delivery && from.IsDispatched() {
			return ErrPartnerReleaseRequired
		}
		return nil
	}

	roles, ok := forwardRights[edge{mode, from, to}]
	if !ok {
		return NewInvalidTransitionError(mode, from, to)
	}
	if !slices.Contains(roles, role) {
		return NewActorNotPermittedError(role, from, to)
	}
	return nil
}

// NextStatuses lists the forward statuses reachable from the given one,
// regardless of role. Aborts are not included.
func NextStatuses(mode Mode, from Status) []Status {
	var next []Status
	for e := range forwardRights {
		if e.mode == mode && e.from == from {
			next = append(next, e.to)
		}
	}
	slices.Sort(next)
	return next
}

// IsModeStatus reports whether an order of the given mode can ever be in status s.
// Ready belongs to Pickup only; OnTheWay and Delivered belong to Delivery only.
func IsModeStatus(mode Mode, s Status) bool {
	if mode.Validate() != nil || s.Validate() != nil {
		return false
	}
	switch s { //nolint:exhaustive // shared statuses fall through
	case Ready:
		return mode == Pickup
	case OnTheWay, Delivered:
		return mode == Delivery
	}
	return true
}

// IsClaimableStatus reports whether a DELIVERY order in status s accepts a partner claim.
// Partners may take the order as soon as the merchant accepts it and until it is picked up.
func IsClaimableStatus(s Status) bool {
	return s == Accepted || s == Preparing || s == OnTheWay
}

// IsAbortStatus reports whether s ends an order without fulfilment.
// Stores only write an abort status while no partner is assigned.
func IsAbortStatus(s Status) bool {
	_, ok := abortRights[s]
	return ok
}
