package order_test

import (
	"fmt"
	"testing"

	"ordertrack/internal/core/domain/model/order"
	"ordertrack/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []order.Status{
	order.Pending,
	order.Accepted,
	order.Preparing,
	order.Ready,
	order.OnTheWay,
	order.PickedUp,
	order.Delivered,
	order.Cancelled,
	order.Rejected,
}

func TestStatus_Codes(t *testing.T) {
	t.Run("should round trip storage codes", func(t *testing.T) {
		for _, s := range allStatuses {
			t.Run(fmt.Sprintf("should parse %s", s.Code()), func(t *testing.T) {
				parsed, err := order.StatusFromCode(s.Code())

				require.NoError(t, err)
				assert.Equal(t, s, parsed)
			})
		}
	})

	t.Run("should use original storage vocabulary", func(t *testing.T) {
		assert.Equal(t, "placed", order.Pending.Code())
		assert.Equal(t, "packing", order.Preparing.Code())
		assert.Equal(t, "on_way", order.OnTheWay.Code())
		assert.Equal(t, "picked_up", order.PickedUp.Code())
	})

	t.Run("should reject unknown code", func(t *testing.T) {
		_, err := order.StatusFromCode("lost")

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "On the way", order.OnTheWay.String())
	assert.Equal(t, "Picked Up", order.PickedUp.String())
	assert.Equal(t, "Unknown", order.Status(42).String())
}

func TestStatus_Validate(t *testing.T) {
	t.Run("should validate defined statuses", func(t *testing.T) {
		for _, s := range allStatuses {
			require.NoError(t, s.Validate())
		}
	})

	t.Run("should reject Unknown status", func(t *testing.T) {
		err := order.Unknown.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "0 is not a valid status")
	})
}

func TestStatus_IsFinal(t *testing.T) {
	t.Run("should treat picked up as final only for pickup", func(t *testing.T) {
		assert.True(t, order.PickedUp.IsFinal(order.Pickup))
		assert.False(t, order.PickedUp.IsFinal(order.Delivery))
	})

	t.Run("should treat delivered cancelled rejected as final for both modes", func(t *testing.T) {
		for _, mode := range []order.Mode{order.Delivery, order.Pickup} {
			assert.True(t, order.Delivered.IsFinal(mode))
			assert.True(t, order.Cancelled.IsFinal(mode))
			assert.True(t, order.Rejected.IsFinal(mode))
			assert.False(t, order.Pending.IsFinal(mode))
		}
	})
}

func TestMode(t *testing.T) {
	t.Run("should parse codes", func(t *testing.T) {
		m, err := order.ModeFromCode("pickup")
		require.NoError(t, err)
		assert.Equal(t, order.Pickup, m)

		m, err = order.ModeFromCode("DELIVERY")
		require.NoError(t, err)
		assert.Equal(t, order.Delivery, m)
	})

	t.Run("should reject unknown mode", func(t *testing.T) {
		_, err := order.ModeFromCode("drone")
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
		require.Error(t, order.UnknownMode.Validate())
	})
}
