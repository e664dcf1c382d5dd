package queries_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ordertrack/internal/core/application/usecases/queries"
	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"
	"ordertrack/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type MockOrderReader struct{ mock.Mock }

func (m *MockOrderReader) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderReader) GetAllAvailableForClaim(ctx context.Context) ([]*order.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func newDeliveryOrder(t *testing.T, merchantSteps ...order.Status) *order.Order {
	t.Helper()
	pickup, err := kernel.NewCoordinate(12.97, 77.59)
	require.NoError(t, err)
	drop, err := kernel.NewCoordinate(12.96, 77.60)
	require.NoError(t, err)
	merchant := order.Actor{Role: order.Merchant, ID: kernel.NewUUID()}
	o, err := order.NewOrder(kernel.NewUUID(), order.Draft{
		Mode:        order.Delivery,
		CustomerID:  kernel.NewUUID(),
		MerchantID:  merchant.ID,
		PickupPoint: pickup,
		DropPoint:   &drop,
		TotalMinor:  1200,
	}, t0)
	require.NoError(t, err)
	for _, s := range merchantSteps {
		require.NoError(t, o.Advance(merchant, s, t0))
	}
	return o
}

func TestGetAvailableOrdersQueryHandler_Handle(t *testing.T) {
	t.Run("should map claimable orders", func(t *testing.T) {
		ctx := t.Context()
		o := newDeliveryOrder(t, order.Accepted)
		reader := new(MockOrderReader)
		reader.On("GetAllAvailableForClaim", ctx).Return([]*order.Order{o}, nil).Once()

		resp, err := queries.NewGetAvailableOrdersQueryHandler(reader).Handle(ctx, queries.NewGetAvailableOrdersQuery())

		require.NoError(t, err)
		require.Len(t, resp, 1)
		assert.True(t, resp[0].ID.IsEqual(o.ID()))
		assert.Equal(t, "Accepted", resp[0].StatusLabel)
		assert.Equal(t, []order.Status{order.Preparing}, resp[0].NextStatuses)
		assert.InDelta(t, 1552.6, resp[0].DistanceMeters, 5)
		assert.Nil(t, resp[0].PartnerID)
	})

	t.Run("should drop orders that are no longer claimable", func(t *testing.T) {
		ctx := t.Context()
		pending := newDeliveryOrder(t)
		claimed := newDeliveryOrder(t, order.Accepted)
		require.NoError(t, claimed.Claim(kernel.NewUUID(), t0))
		reader := new(MockOrderReader)
		reader.On("GetAllAvailableForClaim", ctx).Return([]*order.Order{pending, claimed}, nil).Once()

		resp, err := queries.NewGetAvailableOrdersQueryHandler(reader).Handle(ctx, queries.NewGetAvailableOrdersQuery())

		require.NoError(t, err)
		assert.Empty(t, resp)
	})

	t.Run("should return reader error", func(t *testing.T) {
		ctx := t.Context()
		reader := new(MockOrderReader)
		reader.On("GetAllAvailableForClaim", ctx).Return(nil, errors.New("db down")).Once()

		_, err := queries.NewGetAvailableOrdersQueryHandler(reader).Handle(ctx, queries.NewGetAvailableOrdersQuery())

		require.EqualError(t, err, "db down")
	})

	t.Run("should reject unconstructed query", func(t *testing.T) {
		_, err := queries.NewGetAvailableOrdersQueryHandler(new(MockOrderReader)).
			Handle(t.Context(), queries.GetAvailableOrdersQuery{})

		require.ErrorIs(t, err, queries.ErrGetAvailableOrdersQueryIsNotConstructed)
	})
}

func TestGetOrderQueryHandler_Handle(t *testing.T) {
	t.Run("should return the order", func(t *testing.T) {
		ctx := t.Context()
		o := newDeliveryOrder(t, order.Accepted, order.Preparing)
		reader := new(MockOrderReader)
		reader.On("Get", ctx, o.ID()).Return(o, nil).Once()
		query, err := queries.NewGetOrderQuery(o.ID())
		require.NoError(t, err)

		resp, err := queries.NewGetOrderQueryHandler(reader).Handle(ctx, query)

		require.NoError(t, err)
		assert.Equal(t, order.Preparing, resp.Status)
		assert.Equal(t, int64(1200), resp.TotalMinor)
	})

	t.Run("should pass through not found", func(t *testing.T) {
		ctx := t.Context()
		id := kernel.NewUUID()
		reader := new(MockOrderReader)
		reader.On("Get", ctx, id).Return(nil, errs.NewObjectNotFoundError("order", id)).Once()
		query, err := queries.NewGetOrderQuery(id)
		require.NoError(t, err)

		_, err = queries.NewGetOrderQueryHandler(reader).Handle(ctx, query)

		require.ErrorIs(t, err, errs.ErrObjectNotFound)
	})

	t.Run("should reject zero id", func(t *testing.T) {
		_, err := queries.NewGetOrderQuery(kernel.UUID{})

		require.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
	})
}
