package order

import (
	"errors"
	"fmt"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/pkg/errs"
)

// Role is the part a user plays in an order.
type Role int

const (
	// UnknownRole is the invalid zero value.
	UnknownRole Role = iota
	// Customer placed the order.
	Customer
	// Merchant prepares the order. Its position is the static pickup point.
	Merchant
	// Partner carries DELIVERY orders.
	Partner
)

var roleCodes = map[Role]string{
	Customer: "customer",
	Merchant: "merchant",
	Partner:  "partner",
}

// RoleFromCode parses "customer", "merchant" or "partner".
func RoleFromCode(code string) (Role, error) {
	for r, c := range roleCodes {
		if c == code {
			return r, nil
		}
	}
	return UnknownRole, errs.NewValueIsInvalidErrorWithCause("role", fmt.Errorf("%q is not a role", code))
}

// Validate rejects UnknownRole.
func (r Role) Validate() error {
	if _, ok := roleCodes[r]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("role is invalid", fmt.Errorf("%d is not a valid role", r))
	}
	return nil
}

func (r Role) String() string {
	if c, ok := roleCodes[r]; ok {
		return c
	}
	return "unknown"
}

// Actor is the user performing an operation on an order.
type Actor struct {
	Role Role
	ID   kernel.UUID
}

// NewActor validates role and identifier.
func NewActor(role Role, id kernel.UUID) (Actor, error) {
	if err := errors.Join(role.Validate(), id.Validate()); err != nil {
		return Actor{}, err
	}
	return Actor{Role: role, ID: id}, nil
}

func (a Actor) String() string {
	return a.Role.String() + ":" + a.ID.String()
}
