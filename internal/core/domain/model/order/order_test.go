package order_test

import (
	"testing"
	"time"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"
	"ordertrack/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type parties struct {
	customer order.Actor
	merchant order.Actor
	p1       order.Actor
	p2       order.Actor
}

func newParties(t *testing.T) parties {
	t.Helper()
	mk := func(role order.Role) order.Actor {
		a, err := order.NewActor(role, kernel.NewUUID())
		require.NoError(t, err)
		return a
	}
	return parties{
		customer: mk(order.Customer),
		merchant: mk(order.Merchant),
		p1:       mk(order.Partner),
		p2:       mk(order.Partner),
	}
}

func coord(t *testing.T, lat, lng float64) kernel.Coordinate {
	t.Helper()
	c, err := kernel.NewCoordinate(lat, lng)
	require.NoError(t, err)
	return c
}

func newDeliveryOrder(t *testing.T, p parties) *order.Order {
	t.Helper()
	drop := coord(t, 12.96, 77.60)
	o, err := order.NewOrder(kernel.NewUUID(), order.Draft{
		Mode:        order.Delivery,
		CustomerID:  p.customer.ID,
		MerchantID:  p.merchant.ID,
		PickupPoint: coord(t, 12.97, 77.59),
		DropPoint:   &drop,
		TotalMinor:  45000,
	}, t0)
	require.NoError(t, err)
	return o
}

func newPickupOrder(t *testing.T, p parties) *order.Order {
	t.Helper()
	o, err := order.NewOrder(kernel.NewUUID(), order.Draft{
		Mode:        order.Pickup,
		CustomerID:  p.customer.ID,
		MerchantID:  p.merchant.ID,
		PickupPoint: coord(t, 12.97, 77.59),
	}, t0)
	require.NoError(t, err)
	return o
}

func TestNewOrder(t *testing.T) {
	p := newParties(t)

	t.Run("should create pending delivery order", func(t *testing.T) {
		o := newDeliveryOrder(t, p)

		require.NoError(t, o.Validate())
		assert.Equal(t, order.Pending, o.Status())
		assert.Equal(t, order.Delivery, o.Mode())
		assert.True(t, o.CustomerID().IsEqual(p.customer.ID))
		assert.True(t, o.MerchantID().IsEqual(p.merchant.ID))
		assert.Nil(t, o.PartnerID())
		require.NotNil(t, o.DropPoint())
		assert.Equal(t, int64(45000), o.TotalMinor())
		assert.Equal(t, t0, o.CreatedAt())
		assert.Equal(t, t0, o.UpdatedAt())
	})

	t.Run("should fail delivery order without drop point", func(t *testing.T) {
		o, err := order.NewOrder(kernel.NewUUID(), order.Draft{
			Mode:        order.Delivery,
			CustomerID:  p.customer.ID,
			MerchantID:  p.merchant.ID,
			PickupPoint: coord(t, 12.97, 77.59),
		}, t0)

		require.ErrorIs(t, err, errs.ErrValueIsRequired)
		assert.Nil(t, o)
	})

	t.Run("should fail pickup order with drop point", func(t *testing.T) {
		drop := coord(t, 12.96, 77.60)
		_, err := order.NewOrder(kernel.NewUUID(), order.Draft{
			Mode:        order.Pickup,
			CustomerID:  p.customer.ID,
			MerchantID:  p.merchant.ID,
			PickupPoint: coord(t, 12.97, 77.59),
			DropPoint:   &drop,
		}, t0)

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("should join multiple validation errors", func(t *testing.T) {
		_, err := order.NewOrder(kernel.UUID{}, order.Draft{TotalMinor: -1}, t0)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "UUID must be created")
		assert.Contains(t, err.Error(), "mode is invalid")
		assert.Contains(t, err.Error(), "coordinate must be created")
		assert.Contains(t, err.Error(), "-1 is negative")
	})

	t.Run("zero value is not constructed", func(t *testing.T) {
		var o order.Order

		assert.Equal(t, order.ErrOrderIsNotConstructed, o.Validate())
	})
}

func TestOrder_DeliveryScenario(t *testing.T) {
	p := newParties(t)
	o := newDeliveryOrder(t, p)

	require.NoError(t, o.Advance(p.merchant, order.Accepted, t0.Add(time.Minute)))
	require.NoError(t, o.Advance(p.merchant, order.Preparing, t0.Add(2*time.Minute)))
	require.NoError(t, o.Advance(p.merchant, order.OnTheWay, t0.Add(3*time.Minute)))

	require.NoError(t, o.Claim(p.p1.ID, t0.Add(4*time.Minute)))
	require.ErrorIs(t, o.Claim(p.p2.ID, t0.Add(4*time.Minute)), order.ErrAlreadyAssigned)

	require.ErrorIs(t, o.Advance(p.p2, order.PickedUp, t0.Add(5*time.Minute)), order.ErrNotAssignedPartner)
	require.NoError(t, o.Advance(p.p1, order.PickedUp, t0.Add(5*time.Minute)))
	require.NoError(t, o.Advance(p.p1, order.Delivered, t0.Add(6*time.Minute)))

	assert.Equal(t, order.Delivered, o.Status())
	assert.True(t, o.IsAssignedTo(p.p1.ID))
	assert.True(t, o.IsFinal())
	assert.Equal(t, t0.Add(6*time.Minute), o.UpdatedAt())
}

func TestOrder_PickupScenario(t *testing.T) {
	p := newParties(t)
	o := newPickupOrder(t, p)

	require.NoError(t, o.Advance(p.merchant, order.Accepted, t0))
	require.NoError(t, o.Advance(p.merchant, order.Preparing, t0))

	t.Run("should not accept claims", func(t *testing.T) {
		require.ErrorIs(t, o.Claim(p.p1.ID, t0), order.ErrNotClaimable)
		assert.False(t, o.IsClaimable())
	})

	t.Run("should not go on the way", func(t *testing.T) {
		require.ErrorIs(t, o.Advance(p.merchant, order.OnTheWay, t0), order.ErrInvalidTransition)
		assert.Equal(t, order.Preparing, o.Status())
	})

	require.NoError(t, o.Advance(p.merchant, order.Ready, t0))
	require.NoError(t, o.Advance(p.customer, order.PickedUp, t0))

	assert.Equal(t, order.PickedUp, o.Status())
	assert.True(t, o.IsFinal())
	assert.Nil(t, o.PartnerID())
}

func TestOrder_Advance(t *testing.T) {
	p := newParties(t)

	t.Run("should leave status unchanged on illegal edge", func(t *testing.T) {
		o := newDeliveryOrder(t, p)

		err := o.Advance(p.merchant, order.Delivered, t0.Add(time.Hour))

		require.ErrorIs(t, err, order.ErrInvalidTransition)
		assert.Equal(t, order.Pending, o.Status())
		assert.Equal(t, t0, o.UpdatedAt())
	})

	t.Run("should refuse partner leg without claim", func(t *testing.T) {
		o := newDeliveryOrder(t, p)
		require.NoError(t, o.Advance(p.merchant, order.Accepted, t0))
		require.NoError(t, o.Advance(p.merchant, order.Preparing, t0))
		require.NoError(t, o.Advance(p.merchant, order.OnTheWay, t0))

		err := o.Advance(p.p1, order.PickedUp, t0)

		require.ErrorIs(t, err, order.ErrPartnerRequired)
		assert.Equal(t, order.OnTheWay, o.Status())
	})

	t.Run("should refuse wrong role", func(t *testing.T) {
		o := newDeliveryOrder(t, p)

		require.ErrorIs(t, o.Advance(p.customer, order.Accepted, t0), order.ErrActorNotPermitted)
	})
}

func TestOrder_Cancel(t *testing.T) {
	p := newParties(t)

	t.Run("should cancel before dispatch", func(t *testing.T) {
		o := newDeliveryOrder(t, p)
		require.NoError(t, o.Advance(p.merchant, order.Accepted, t0))

		require.NoError(t, o.Cancel(p.customer, t0))
		assert.Equal(t, order.Cancelled, o.Status())
	})

	t.Run("should require release once a partner claimed", func(t *testing.T) {
		o := newDeliveryOrder(t, p)
		require.NoError(t, o.Advance(p.merchant, order.Accepted, t0))
		require.NoError(t, o.Claim(p.p1.ID, t0))

		require.ErrorIs(t, o.Cancel(p.merchant, t0), order.ErrPartnerReleaseRequired)
		assert.Equal(t, order.Accepted, o.Status())
	})

	t.Run("should let only merchant reject", func(t *testing.T) {
		o := newPickupOrder(t, p)

		require.ErrorIs(t, o.Reject(p.customer, t0), order.ErrActorNotPermitted)
		require.NoError(t, o.Reject(p.merchant, t0))
		assert.Equal(t, order.Rejected, o.Status())
	})

	t.Run("should not cancel final order", func(t *testing.T) {
		o := newPickupOrder(t, p)
		require.NoError(t, o.Cancel(p.customer, t0))

		require.ErrorIs(t, o.Cancel(p.customer, t0), order.ErrInvalidTransition)
	})
}

func TestOrder_Claim(t *testing.T) {
	p := newParties(t)

	t.Run("should not claim pending order", func(t *testing.T) {
		o := newDeliveryOrder(t, p)

		require.ErrorIs(t, o.Claim(p.p1.ID, t0), order.ErrNotClaimable)
		assert.Nil(t, o.PartnerID())
	})

	t.Run("should keep status on claim", func(t *testing.T) {
		o := newDeliveryOrder(t, p)
		require.NoError(t, o.Advance(p.merchant, order.Accepted, t0))

		require.NoError(t, o.Claim(p.p1.ID, t0.Add(time.Second)))

		assert.Equal(t, order.Accepted, o.Status())
		assert.True(t, o.IsAssignedTo(p.p1.ID))
		assert.False(t, o.IsClaimable())
	})

	t.Run("should not let the winner claim twice", func(t *testing.T) {
		o := newDeliveryOrder(t, p)
		require.NoError(t, o.Advance(p.merchant, order.Accepted, t0))
		require.NoError(t, o.Claim(p.p1.ID, t0))

		require.ErrorIs(t, o.Claim(p.p1.ID, t0), order.ErrAlreadyAssigned)
	})
}

func TestRestoreOrder(t *testing.T) {
	p := newParties(t)

	t.Run("should restore from snapshot", func(t *testing.T) {
		o := newDeliveryOrder(t, p)
		require.NoError(t, o.Advance(p.merchant, order.Accepted, t0))
		require.NoError(t, o.Claim(p.p1.ID, t0))

		restored, err := order.RestoreOrder(o.Snapshot())

		require.NoError(t, err)
		assert.Equal(t, o.Snapshot(), restored.Snapshot())
	})

	t.Run("should reject delivered order without partner", func(t *testing.T) {
		snap := newDeliveryOrder(t, p).Snapshot()
		snap.Status = order.Delivered

		_, err := order.RestoreOrder(snap)

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("should reject pickup order with partner", func(t *testing.T) {
		snap := newPickupOrder(t, p).Snapshot()
		id := p.p1.ID
		snap.PartnerID = &id

		_, err := order.RestoreOrder(snap)

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("should reject ready delivery order", func(t *testing.T) {
		snap := newDeliveryOrder(t, p).Snapshot()
		snap.Status = order.Ready

		_, err := order.RestoreOrder(snap)

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})
}

func TestOrder_Clone(t *testing.T) {
	p := newParties(t)
	o := newDeliveryOrder(t, p)

	c := o.Clone()
	require.NoError(t, o.Advance(p.merchant, order.Accepted, t0))

	assert.Equal(t, order.Pending, c.Status())
	assert.True(t, c.IsEqual(o))
}
