package order

import (
	"fmt"

	"ordertrack/internal/pkg/errs"
)

// Mode is how the goods reach the customer.
type Mode int

const (
	// UnknownMode is the invalid zero value.
	UnknownMode Mode = iota
	// Delivery orders are carried from the merchant to the customer by a partner.
	Delivery
	// Pickup orders are collected at the merchant by the customer.
	Pickup
)

// ModeFromCode parses "delivery" or "pickup".
func ModeFromCode(code string) (Mode, error) {
	switch code {
	case "delivery", "DELIVERY":
		return Delivery, nil
	case "pickup", "PICKUP":
		return Pickup, nil
	}
	return UnknownMode, errs.NewValueIsInvalidErrorWithCause("mode", fmt.Errorf("%q is not a mode", code))
}

// Validate rejects UnknownMode and out-of-range values.
func (m Mode) Validate() error {
	if m != Delivery && m != Pickup {
		return errs.NewValueIsInvalidErrorWithCause("mode is invalid", fmt.Errorf("%d is not a valid mode", m))
	}
	return nil
}

// Code returns the storage code.
func (m Mode) Code() string {
	switch m { //nolint:exhaustive // UnknownMode has no code
	case Delivery:
		return "delivery"
	case Pickup:
		return "pickup"
	}
	return ""
}

func (m Mode) String() string {
	switch m { //nolint:exhaustive // UnknownMode handled by default
	case Delivery:
		return "DELIVERY"
	case Pickup:
		return "PICKUP"
	}
	return "UNKNOWN"
}
