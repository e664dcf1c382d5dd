// Package order provides the Order aggregate and its status state machine.
//
// The package includes:
//   - Order: the aggregate root holding parties, points, partner assignment and status
//   - Status: lifecycle states with display names and storage codes
//   - Mode: Delivery or Pickup, which selects the branch of the state machine
//   - Role and Actor: who performs a transition
//   - CheckTransition: the mode-keyed transition table with role rights
//
// Key business rules:
//   - Pending -> Accepted -> Preparing is shared by both modes and driven by the merchant
//   - Delivery continues Preparing -> OnTheWay (merchant) -> PickedUp -> Delivered (assigned partner)
//   - Pickup continues Preparing -> Ready (merchant) -> PickedUp (merchant or customer)
//   - a partner claims a Delivery order once; later claims fail with ErrAlreadyAssigned
//   - customers and merchants cancel (merchants also reject) only before dispatch and
//     partner assignment; afterwards ErrPartnerReleaseRequired is returned
//   - illegal edges fail with *InvalidTransitionError and leave the status unchanged
package order
