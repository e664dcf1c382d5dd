package order

import (
	"fmt"

	"ordertrack/internal/pkg/errs"
)

// Status represents the lifecycle state of an order.
//
// State transitions:
//
//	Pending ──> Accepted ──> Preparing ──┬──> OnTheWay ──> PickedUp ──> Delivered   (DELIVERY)
//	   │            │            │       └──> Ready ─────> PickedUp                 (PICKUP)
//	   └────────────┴────────────┴──> Cancelled | Rejected
//
// Which edges exist depends on the order Mode and which Role may take them
// is listed in the transition table (see CheckTransition).
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// Pending is the initial status: the order was placed and waits for the merchant.
	Pending

	// Accepted means the merchant took the order.
	Accepted

	// Preparing means the merchant is packing the order.
	Preparing

	// Ready means a PICKUP order waits at the counter for the customer.
	Ready

	// OnTheWay means a DELIVERY order was dispatched and a partner is heading to the merchant.
	OnTheWay

	// PickedUp means the goods left the merchant: with the partner for DELIVERY,
	// with the customer for PICKUP (final).
	PickedUp

	// Delivered is the final status of a DELIVERY order handed to the customer.
	Delivered

	// Cancelled is a final status set by the customer or the merchant.
	Cancelled

	// Rejected is a final status set by the merchant.
	Rejected
)

// statusNames holds display names, as shown to users.
var statusNames = map[Status]string{
	Unknown:   "Unknown",
	Pending:   "Pending",
	Accepted:  "Accepted",
	Preparing: "Preparing",
	Ready:     "Ready",
	OnTheWay:  "On the way",
	PickedUp:  "Picked Up",
	Delivered: "Delivered",
	Cancelled: "Cancelled",
	Rejected:  "Rejected",
}

// statusCodes holds the storage codes of valid statuses. Unknown has none.
//
//nolint:exhaustive // Unknown is intentionally excluded as it's invalid
var statusCodes = map[Status]string{
	Pending:   "placed",
	Accepted:  "accepted",
	Preparing: "packing",
	Ready:     "ready",
	OnTheWay:  "on_way",
	PickedUp:  "picked_up",
	Delivered: "delivered",
	Cancelled: "cancelled",
	Rejected:  "rejected",
}

// StatusFromCode parses a storage code such as "on_way".
//
// Returns:
//   - the matching Status
//   - a ValueIsInvalidError when the code is unknown
func StatusFromCode(code string) (Status, error) {
	for s, c := range statusCodes {
		if c == code {
			return s, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a status code", code))
}

// Validate checks that s is one of the defined statuses other than Unknown.
func (s Status) Validate() error {
	if _, ok := statusCodes[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the display name, e.g. "On the way".
// It is safe to call on any value and falls back to "Unknown".
func (s Status) String() string {
	if str, ok := statusNames[s]; ok {
		return str
	}
	return "Unknown"
}

// Code returns the storage code, e.g. "on_way", or "" for invalid values.
func (s Status) Code() string {
	return statusCodes[s]
}

// IsFinal reports whether no transition leaves s for an order of the given mode.
//
// Delivered, Cancelled and Rejected are final for both modes.
// PickedUp is final only for PICKUP, where the customer collected the goods;
// a DELIVERY order still has the drop-off leg ahead of it.
func (s Status) IsFinal(mode Mode) bool {
	switch s { //nolint:exhaustive // only final states matter
	case Delivered, Cancelled, Rejected:
		return true
	case PickedUp:
		return mode == Pickup
	}
	return false
}

// IsDispatched reports whether the partner leg of a DELIVERY order started.
// Orders past this point cannot be cancelled without releasing the partner.
func (s Status) IsDispatched() bool {
	return s == OnTheWay || s == PickedUp || s == Delivered
}
