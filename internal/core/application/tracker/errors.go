package tracker

import "errors"

var (
	// ErrRegistryClosed is returned by Acquire after Close.
	ErrRegistryClosed = errors.New("tracker registry is closed")

	// ErrNotOrderParty is returned when a viewer has no part in the order.
	ErrNotOrderParty = errors.New("viewer is not a party of the order")
)
