package commands_test

import (
	"testing"

	"ordertrack/internal/core/application/usecases/commands"
	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"
	"ordertrack/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// orderAt builds a Delivery order moved by the merchant up to status.
func orderAt(t *testing.T, p parties, status order.Status) *order.Order {
	t.Helper()
	o, err := order.NewOrder(kernel.NewUUID(), deliveryDraft(t, p), t0)
	require.NoError(t, err)
	for _, next := range []order.Status{order.Accepted, order.Preparing, order.OnTheWay} {
		if o.Status() == status {
			break
		}
		require.NoError(t, o.Advance(p.merchant, next, t0))
	}
	require.Equal(t, status, o.Status())
	return o
}

func claimMocks(t *testing.T, o *order.Order, claimErr error) (*MockOrderUoWFactory, *MockOrderUoW, *MockOrderRepository) {
	t.Helper()
	ctx := t.Context()
	repo := new(MockOrderRepository)
	uow := new(MockOrderUoW)
	factory := new(MockOrderUoWFactory)
	factory.On("Create").Return(uow).Once()
	uow.On("Begin", ctx).Return(nil).Once()
	uow.On("OrderRepository").Return(repo).Once()
	repo.On("Get", ctx, o.ID()).Return(o, nil).Once()
	repo.On("Claim", ctx, o).Return(claimErr).Maybe()
	uow.On("Commit", ctx).Return(nil).Maybe()
	uow.On("Rollback", ctx).Return(nil).Once()
	return factory, uow, repo
}

func TestClaimOrderCommandHandler_Handle(t *testing.T) {
	t.Run("should assign partner and keep status", func(t *testing.T) {
		p := newParties()
		o := orderAt(t, p, order.Preparing)
		factory, uow, repo := claimMocks(t, o, nil)
		cmd, err := commands.NewClaimOrderCommand(o.ID(), p.partner.ID)
		require.NoError(t, err)

		claimed, err := commands.NewClaimOrderCommandHandler(factory, fixedClock).Handle(t.Context(), cmd)

		require.NoError(t, err)
		assert.True(t, claimed.IsAssignedTo(p.partner.ID))
		assert.Equal(t, order.Preparing, claimed.Status())
		repo.AssertExpectations(t)
		uow.AssertCalled(t, "Commit", t.Context())
	})

	t.Run("should return already assigned when the store write loses the race", func(t *testing.T) {
		p := newParties()
		o := orderAt(t, p, order.Accepted)
		factory, uow, _ := claimMocks(t, o, order.ErrAlreadyAssigned)
		cmd, err := commands.NewClaimOrderCommand(o.ID(), p.partner.ID)
		require.NoError(t, err)

		_, err = commands.NewClaimOrderCommandHandler(factory, fixedClock).Handle(t.Context(), cmd)

		require.ErrorIs(t, err, order.ErrAlreadyAssigned)
		uow.AssertNotCalled(t, "Commit", t.Context())
	})

	t.Run("should return already assigned without writing when loaded order is taken", func(t *testing.T) {
		p := newParties()
		o := orderAt(t, p, order.OnTheWay)
		require.NoError(t, o.Claim(kernel.NewUUID(), t0))
		factory, _, repo := claimMocks(t, o, nil)
		cmd, err := commands.NewClaimOrderCommand(o.ID(), p.partner.ID)
		require.NoError(t, err)

		_, err = commands.NewClaimOrderCommandHandler(factory, fixedClock).Handle(t.Context(), cmd)

		require.ErrorIs(t, err, order.ErrAlreadyAssigned)
		repo.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything)
	})

	t.Run("should refuse pending orders", func(t *testing.T) {
		p := newParties()
		o := orderAt(t, p, order.Pending)
		factory, _, _ := claimMocks(t, o, nil)
		cmd, err := commands.NewClaimOrderCommand(o.ID(), p.partner.ID)
		require.NoError(t, err)

		_, err = commands.NewClaimOrderCommandHandler(factory, fixedClock).Handle(t.Context(), cmd)

		require.ErrorIs(t, err, order.ErrNotClaimable)
	})

	t.Run("should pass through not found", func(t *testing.T) {
		ctx := t.Context()
		id := kernel.NewUUID()
		repo := new(MockOrderRepository)
		uow := new(MockOrderUoW)
		factory := new(MockOrderUoWFactory)
		factory.On("Create").Return(uow).Once()
		uow.On("Begin", ctx).Return(nil).Once()
		uow.On("OrderRepository").Return(repo).Once()
		uow.On("Rollback", ctx).Return(nil).Once()
		repo.On("Get", ctx, id).Return(nil, errs.NewObjectNotFoundError("order", id)).Once()
		cmd, err := commands.NewClaimOrderCommand(id, kernel.NewUUID())
		require.NoError(t, err)

		_, err = commands.NewClaimOrderCommandHandler(factory, fixedClock).Handle(ctx, cmd)

		require.ErrorIs(t, err, errs.ErrObjectNotFound)
	})
}

func TestNewClaimOrderCommand_InvalidIDs(t *testing.T) {
	_, err := commands.NewClaimOrderCommand(kernel.UUID{}, kernel.UUID{})

	require.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
	require.ErrorIs(t, (commands.ClaimOrderCommand{}).Validate(), commands.ErrClaimOrderCommandIsNotConstructed)
}
