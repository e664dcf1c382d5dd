package order

import (
	"errors"
	"fmt"
	"time"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/pkg/errs"
)

// Draft carries what the checkout collaborator supplies for a new order.
type Draft struct {
	Mode        Mode
	CustomerID  kernel.UUID
	MerchantID  kernel.UUID
	PickupPoint kernel.Coordinate
	// DropPoint is required for Delivery and must be nil for Pickup.
	DropPoint *kernel.Coordinate
	// TotalMinor is the order total in minor currency units. No logic depends on it.
	TotalMinor int64
}

// Snapshot is the full persisted state of an order, used to rebuild it from storage.
type Snapshot struct {
	ID          kernel.UUID
	Mode        Mode
	Status      Status
	CustomerID  kernel.UUID
	MerchantID  kernel.UUID
	PartnerID   *kernel.UUID
	PickupPoint kernel.Coordinate
	DropPoint   *kernel.Coordinate
	TotalMinor  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Order is the aggregate root of the order lifecycle.
//
// Order follows these invariants:
//   - identifiers of the order, customer and merchant are valid
//   - a Delivery order has a drop point, a Pickup order has none
//   - a Pickup order never has a partner
//   - status changes only through CheckTransition edges, and stays unchanged on error
//   - the partner is set at most once, by Claim
//
// Order is not safe for concurrent mutation; concurrent writers are serialized
// by the repository's conditional updates.
type Order struct {
	id          kernel.UUID
	mode        Mode
	status      Status
	customerID  kernel.UUID
	merchantID  kernel.UUID
	partnerID   *kernel.UUID
	pickupPoint kernel.Coordinate
	dropPoint   *kernel.Coordinate
	totalMinor  int64
	createdAt   time.Time
	updatedAt   time.Time

	isConstructed bool
}

// NewOrder creates a Pending order from a checkout draft.
//
// Parameters:
//   - id: unique identifier for the order
//   - draft: mode, parties, points and total
//   - now: creation time, also used as the first update time
//
// Returns:
//   - *Order: the created order
//   - error: every validation failure joined together
//
// Example:
//
//	pickup, _ := kernel.NewCoordinate(12.97, 77.59)
//	drop, _ := kernel.NewCoordinate(12.96, 77.60)
//	o, err := order.NewOrder(kernel.NewUUID(), order.Draft{
//	    Mode:        order.Delivery,
//	    CustomerID:  customerID,
//	    MerchantID:  merchantID,
//	    PickupPoint: pickup,
//	    DropPoint:   &drop,
//	}, time.Now())
func NewOrder(id kernel.UUID, draft Draft, now time.Time) (*Order, error) {
	o := &Order{
		status:        Pending,
		createdAt:     now,
		updatedAt:     now,
		isConstructed: true,
	}

	if err := errors.Join(
		o.setID(id),
		o.setMode(draft.Mode),
		o.setParties(draft.CustomerID, draft.MerchantID),
		o.setPoints(draft.Mode, draft.PickupPoint, draft.DropPoint),
		o.setTotal(draft.TotalMinor),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// RestoreOrder rebuilds an order from persisted state.
// Besides the NewOrder checks it verifies that status and partner assignment agree.
func RestoreOrder(s Snapshot) (*Order, error) {
	o := &Order{
		createdAt:     s.CreatedAt,
		updatedAt:     s.UpdatedAt,
		isConstructed: true,
	}

	if err := errors.Join(
		o.setID(s.ID),
		o.setMode(s.Mode),
		o.setParties(s.CustomerID, s.MerchantID),
		o.setPoints(s.Mode, s.PickupPoint, s.DropPoint),
		o.setTotal(s.TotalMinor),
		o.setRestoredStatus(s.Status, s.PartnerID),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// Validate ensures the Order instance was properly constructed.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}

	return nil
}

// IsEqual compares two orders by identifier.
func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id.IsEqual(other.id)
}

// ID returns the order's unique identifier.
func (o *Order) ID() kernel.UUID {
	return o.id
}

// Mode returns how the order reaches the customer.
func (o *Order) Mode() Mode {
	return o.mode
}

// Status returns the current status.
func (o *Order) Status() Status {
	return o.status
}

// CustomerID returns the customer who placed the order.
func (o *Order) CustomerID() kernel.UUID {
	return o.customerID
}

// MerchantID returns the merchant preparing the order.
func (o *Order) MerchantID() kernel.UUID {
	return o.merchantID
}

// PartnerID returns the assigned partner, or nil before a claim.
func (o *Order) PartnerID() *kernel.UUID {
	if o.partnerID == nil {
		return nil
	}
	id := *o.partnerID
	return &id
}

// PickupPoint returns the merchant location.
func (o *Order) PickupPoint() kernel.Coordinate {
	return o.pickupPoint
}

// DropPoint returns the customer location of a Delivery order, nil for Pickup.
func (o *Order) DropPoint() *kernel.Coordinate {
	if o.dropPoint == nil {
		return nil
	}
	p := *o.dropPoint
	return &p
}

// TotalMinor returns the order total in minor currency units.
func (o *Order) TotalMinor() int64 {
	return o.totalMinor
}

// CreatedAt returns the creation time.
func (o *Order) CreatedAt() time.Time {
	return o.createdAt
}

// UpdatedAt returns the time of the last state change.
func (o *Order) UpdatedAt() time.Time {
	return o.updatedAt
}

// IsFinal reports whether the order reached a final status for its mode.
func (o *Order) IsFinal() bool {
	return o.status.IsFinal(o.mode)
}

// HasPartner reports whether a partner claimed the order.
func (o *Order) HasPartner() bool {
	return o.partnerID != nil
}

// IsAssignedTo reports whether partnerID owns the order.
func (o *Order) IsAssignedTo(partnerID kernel.UUID) bool {
	return o.partnerID != nil && o.partnerID.IsEqual(partnerID)
}

// IsClaimable reports whether a partner may claim the order right now.
func (o *Order) IsClaimable() bool {
	return o.mode == Delivery && o.partnerID == nil && IsClaimableStatus(o.status)
}

// CanAdvance checks whether actor may move the order to next, without side effects.
//
// Besides CheckTransition it enforces the partner rules:
//   - partner leg transitions need an assigned partner (ErrPartnerRequired)
//     and only that partner may take them (ErrNotAssignedPartner)
//   - cancelling or rejecting a claimed order returns ErrPartnerReleaseRequired
func (o *Order) CanAdvance(actor Actor, next Status) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := CheckTransition(o.mode, o.status, next, actor.Role); err != nil {
		return err
	}

	switch next { //nolint:exhaustive // only partner-sensitive targets
	case Cancelled, Rejected:
		if o.partnerID != nil {
			return ErrPartnerReleaseRequired
		}
	case PickedUp, Delivered:
		if o.mode != Delivery {
			return nil
		}
		if o.partnerID == nil {
			return ErrPartnerRequired
		}
		if !o.partnerID.IsEqual(actor.ID) {
			return ErrNotAssignedPartner
		}
	}
	return nil
}

// Advance moves the order to next on behalf of actor.
//
// Returns:
//   - nil on success; status and update time change
//   - the CanAdvance error otherwise; the order is left untouched
//
// Example:
//
//	merchant, _ := order.NewActor(order.Merchant, o.MerchantID())
//	if err := o.Advance(merchant, order.Accepted, time.Now()); err != nil {
//	    // errors.Is(err, order.ErrInvalidTransition) etc.
//	}
func (o *Order) Advance(actor Actor, next Status, now time.Time) error {
	if err := o.CanAdvance(actor, next); err != nil {
		return err
	}

	o.status = next
	o.touch(now)
	return nil
}

// Cancel moves the order to Cancelled on behalf of a customer or merchant.
func (o *Order) Cancel(actor Actor, now time.Time) error {
	return o.Advance(actor, Cancelled, now)
}

// Reject moves the order to Rejected on behalf of the merchant.
func (o *Order) Reject(actor Actor, now time.Time) error {
	return o.Advance(actor, Rejected, now)
}

// Claim assigns partnerID to a Delivery order. Status does not change.
//
// Returns:
//   - ErrAlreadyAssigned if any partner, including partnerID itself, holds the order
//   - ErrNotClaimable for Pickup orders and statuses outside IsClaimableStatus
func (o *Order) Claim(partnerID kernel.UUID, now time.Time) error {
	if err := errors.Join(o.Validate(), partnerID.Validate()); err != nil {
		return err
	}
	if o.partnerID != nil {
		return ErrAlreadyAssigned
	}
	if o.mode != Delivery || !IsClaimableStatus(o.status) {
		return fmt.Errorf("%w: %s order in status %s", ErrNotClaimable, o.mode, o.status)
	}

	o.partnerID = &partnerID
	o.touch(now)
	return nil
}

// Snapshot exports the full state for persistence.
func (o *Order) Snapshot() Snapshot {
	return Snapshot{
		ID:          o.id,
		Mode:        o.mode,
		Status:      o.status,
		CustomerID:  o.customerID,
		MerchantID:  o.merchantID,
		PartnerID:   o.PartnerID(),
		PickupPoint: o.pickupPoint,
		DropPoint:   o.DropPoint(),
		TotalMinor:  o.totalMinor,
		CreatedAt:   o.createdAt,
		UpdatedAt:   o.updatedAt,
	}
}

// Clone returns an independent copy, so readers never observe later mutations.
func (o *Order) Clone() *Order {
	c := *o
	c.partnerID = o.PartnerID()
	c.dropPoint = o.DropPoint()
	return &c
}

func (o *Order) touch(now time.Time) {
	if now.After(o.updatedAt) {
		o.updatedAt = now
	}
}

func (o *Order) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

func (o *Order) setMode(mode Mode) error {
	if err := mode.Validate(); err != nil {
		return err
	}
	o.mode = mode
	return nil
}

func (o *Order) setParties(customerID, merchantID kernel.UUID) error {
	if err := errors.Join(customerID.Validate(), merchantID.Validate()); err != nil {
		return err
	}
	o.customerID = customerID
	o.merchantID = merchantID
	return nil
}

// setPoints validates the pickup point and the mode-dependent drop point.
func (o *Order) setPoints(mode Mode, pickup kernel.Coordinate, drop *kernel.Coordinate) error {
	if err := pickup.Validate(); err != nil {
		return err
	}
	switch {
	case mode == Delivery && drop == nil:
		return errs.NewValueIsRequiredError("drop point")
	case mode == Pickup && drop != nil:
		return errs.NewValueIsInvalidErrorWithCause("drop point", errors.New("pickup orders have no drop point"))
	case drop != nil:
		if err := drop.Validate(); err != nil {
			return err
		}
		p := *drop
		o.dropPoint = &p
	}
	o.pickupPoint = pickup
	return nil
}

func (o *Order) setTotal(totalMinor int64) error {
	if totalMinor < 0 {
		return errs.NewValueIsInvalidErrorWithCause("total", fmt.Errorf("%d is negative", totalMinor))
	}
	o.totalMinor = totalMinor
	return nil
}

// setRestoredStatus checks that stored status and partner assignment are consistent.
func (o *Order) setRestoredStatus(status Status, partnerID *kernel.UUID) error {
	if err := status.Validate(); err != nil {
		return err
	}
	if partnerID != nil {
		if err := partnerID.Validate(); err != nil {
			return err
		}
		if o.mode == Pickup {
			return errs.NewValueIsInvalidErrorWithCause("partner", errors.New("pickup orders have no partner"))
		}
	}
	if o.mode == Delivery && partnerID == nil && (status == PickedUp || status == Delivered) {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid", fmt.Errorf("%s requires an assigned partner", status))
	}
	if o.mode.Validate() == nil && !IsModeStatus(o.mode, status) {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid", fmt.Errorf("%s is not a %s status", status, o.mode))
	}

	o.status = status
	if partnerID != nil {
		id := *partnerID
		o.partnerID = &id
	}
	return nil
}
