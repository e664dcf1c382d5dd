// Package commands contains business operations that modify order state.
// Every command follows the same pattern: constructor validation, a unit of work,
// a domain check on the aggregate, and a conditional write to the store.
package commands

import (
	"context"
	"time"

	"ordertrack/internal/core/ports"
)

// Unit of Work interfaces provide transaction management for command handlers.
type (
	// TxManager handles transaction lifecycle.
	TxManager interface {
		Begin(ctx context.Context) error
		Commit(ctx context.Context) error
		Rollback(ctx context.Context) error
	}

	// OrderRepoFactory provides access to the order repository within a transaction.
	OrderRepoFactory interface {
		OrderRepository() ports.OrderRepository
	}

	// OrderUoW manages transactions for order operations.
	//
	// Example:
	//   uow := factory.Create()
	//   err := uow.Begin(ctx)
	//   defer uow.Rollback(ctx)
	//
	//   repo := uow.OrderRepository()
	//   // ... load, mutate, conditionally write
	//
	//   err = uow.Commit(ctx)
	OrderUoW interface {
		TxManager
		OrderRepoFactory
	}

	// OrderUoWFactory creates new order unit of work instances.
	OrderUoWFactory interface {
		Create() OrderUoW
	}
)

// Clock returns the current time. Handlers stamp aggregate updates with it.
type Clock func() time.Time

// FuncOrderUoWFactory adapts a function to OrderUoWFactory.
type FuncOrderUoWFactory func() OrderUoW

func (f FuncOrderUoWFactory) Create() OrderUoW {
	return f()
}

// OrderUoWFactoryFrom adapts a store's ports.UnitOfWorkFactory for the handlers.
func OrderUoWFactoryFrom(factory ports.UnitOfWorkFactory) OrderUoWFactory {
	return FuncOrderUoWFactory(func() OrderUoW {
		return factory.Create()
	})
}
