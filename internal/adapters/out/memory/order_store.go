// Package memory provides in-process adapters for running the tracking core
// without external infrastructure: an order store with change notifications,
// a partner location broker and a push-driven location source.
//
// The order store follows the same unit of work contract as the postgres
// adapter: writes are staged on the unit of work, checked when staged, and
// re-checked atomically on Commit.
package memory

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"
	"ordertrack/internal/core/ports"
	"ordertrack/internal/pkg/errs"
)

// ErrNoTransaction is returned by Commit and Rollback outside Begin.
var ErrNoTransaction = errors.New("no active transaction")

// OrderStore keeps orders as snapshots so callers never share aggregate memory.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[kernel.UUID]order.Snapshot

	subsMu sync.Mutex
	subs   map[kernel.UUID]map[uint64]func()
	nextID uint64
}

// NewOrderStore creates an empty store.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders: make(map[kernel.UUID]order.Snapshot),
		subs:   make(map[kernel.UUID]map[uint64]func()),
	}
}

// Get returns the stored order or errs.ObjectNotFoundError.
func (s *OrderStore) Get(_ context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	snapshot, ok := s.orders[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errs.NewObjectNotFoundError("order", id)
	}

	return order.RestoreOrder(snapshot)
}

// GetAllAvailableForClaim returns claimable Delivery orders, newest first.
func (s *OrderStore) GetAllAvailableForClaim(_ context.Context) ([]*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*order.Order, 0)
	for _, snapshot := range s.orders {
		o, err := order.RestoreOrder(snapshot)
		if err != nil {
			return nil, err
		}
		if o.IsClaimable() {
			result = append(result, o)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt().After(result[j].CreatedAt())
	})
	return result, nil
}

// Subscribe registers onChange for commits touching orderID.
// The callback runs on the committing goroutine after the store lock is released.
func (s *OrderStore) Subscribe(_ context.Context, orderID kernel.UUID, onChange func()) (ports.Unsubscribe, error) {
	if err := orderID.Validate(); err != nil {
		return nil, err
	}

	s.subsMu.Lock()
	s.nextID++
	id := s.nextID
	if s.subs[orderID] == nil {
		s.subs[orderID] = make(map[uint64]func())
	}
	s.subs[orderID][id] = onChange
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs[orderID], id)
			if len(s.subs[orderID]) == 0 {
				delete(s.subs, orderID)
			}
			s.subsMu.Unlock()
		})
	}, nil
}

func (s *OrderStore) notify(orderID kernel.UUID) {
	s.subsMu.Lock()
	callbacks := make([]func(), 0, len(s.subs[orderID]))
	for _, cb := range s.subs[orderID] {
		callbacks = append(callbacks, cb)
	}
	s.subsMu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

// stagedWrite is one pending change of a unit of work.
type stagedWrite struct {
	aggregate *order.Order
	check     func(stored order.Snapshot, exists bool) error
	apply     func(stored order.Snapshot) order.Snapshot
}

// commit re-checks and applies all writes atomically.
func (s *OrderStore) commit(writes []stagedWrite) error {
	s.mu.Lock()
	for _, w := range writes {
		stored, exists := s.orders[w.aggregate.ID()]
		if err := w.check(stored, exists); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	for _, w := range writes {
		s.orders[w.aggregate.ID()] = w.apply(s.orders[w.aggregate.ID()])
	}
	s.mu.Unlock()

	for _, w := range writes {
		s.notify(w.aggregate.ID())
	}
	return nil
}

func (s *OrderStore) check(w stagedWrite) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, exists := s.orders[w.aggregate.ID()]
	return w.check(stored, exists)
}

// UnitOfWorkFactory creates units of work over one OrderStore.
type UnitOfWorkFactory struct {
	store     *OrderStore
	publisher ports.OrderEventPublisher
	logger    *slog.Logger
}

// NewUnitOfWorkFactory creates a factory. publisher may be nil.
func NewUnitOfWorkFactory(store *OrderStore, publisher ports.OrderEventPublisher, logger *slog.Logger) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		store:     store,
		publisher: publisher,
		logger:    logger.With("component", "memory_unit_of_work"),
	}
}

// Create returns a fresh unit of work.
func (f *UnitOfWorkFactory) Create() ports.UnitOfWork {
	return &UnitOfWork{store: f.store, publisher: f.publisher, logger: f.logger}
}

// UnitOfWork stages order writes until Commit.
type UnitOfWork struct {
	store     *OrderStore
	publisher ports.OrderEventPublisher
	logger    *slog.Logger

	active bool
	writes []stagedWrite
}

// Begin starts staging. A second Begin is a no-op.
func (uow *UnitOfWork) Begin(_ context.Context) error {
	if uow.active {
		return nil
	}
	uow.active = true
	uow.writes = nil
	return nil
}

// Commit applies the staged writes and publishes a status event per written order.
func (uow *UnitOfWork) Commit(ctx context.Context) error {
	if !uow.active {
		return ErrNoTransaction
	}

	writes := uow.writes
	uow.active = false
	uow.writes = nil
	if err := uow.store.commit(writes); err != nil {
		return err
	}

	if uow.publisher == nil {
		return nil
	}
	for _, w := range writes {
		if err := uow.publisher.PublishStatusChanged(ctx, w.aggregate); err != nil {
			uow.logger.WarnContext(ctx, "Failed to publish order status event",
				"order_id", w.aggregate.ID().String(), "error", err)
		}
	}
	return nil
}

// Rollback drops the staged writes.
func (uow *UnitOfWork) Rollback(_ context.Context) error {
	if !uow.active {
		return ErrNoTransaction
	}
	uow.active = false
	uow.writes = nil
	return nil
}

// OrderRepository returns a repository staging into this unit of work.
func (uow *UnitOfWork) OrderRepository() ports.OrderRepository {
	return orderRepository{uow: uow}
}

func (uow *UnitOfWork) stage(w stagedWrite) error {
	if err := uow.store.check(w); err != nil {
		return err
	}
	if !uow.active {
		// Outside a transaction writes apply immediately.
		return uow.store.commit([]stagedWrite{w})
	}
	uow.writes = append(uow.writes, w)
	return nil
}

type orderRepository struct {
	uow *UnitOfWork
}

func (r orderRepository) Add(_ context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	snapshot := aggregate.Snapshot()
	return r.uow.stage(stagedWrite{
		aggregate: aggregate.Clone(),
		check: func(_ order.Snapshot, exists bool) error {
			if exists {
				return errs.NewValueIsInvalidErrorWithCause("order", errors.New("order already exists"))
			}
			return nil
		},
		apply: func(order.Snapshot) order.Snapshot { return snapshot },
	})
}

func (r orderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	return r.uow.store.Get(ctx, id)
}

// UpdateStatus writes the aggregate's status if the stored one still equals expected.
// Aborts also require that no partner claimed the order in the meantime.
func (r orderRepository) UpdateStatus(_ context.Context, aggregate *order.Order, expected order.Status) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	next := aggregate.Status()
	updatedAt := aggregate.UpdatedAt()
	return r.uow.stage(stagedWrite{
		aggregate: aggregate.Clone(),
		check: func(stored order.Snapshot, exists bool) error {
			if !exists {
				return errs.NewObjectNotFoundError("order", aggregate.ID())
			}
			if stored.Status != expected {
				return errs.NewConflictError("status", expected, stored.Status)
			}
			if order.IsAbortStatus(next) && stored.PartnerID != nil {
				return order.ErrPartnerReleaseRequired
			}
			return nil
		},
		apply: func(stored order.Snapshot) order.Snapshot {
			stored.Status = next
			stored.UpdatedAt = updatedAt
			return stored
		},
	})
}

func (r orderRepository) Claim(_ context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	partnerID := aggregate.PartnerID()
	if partnerID == nil {
		return order.ErrPartnerRequired
	}

	updatedAt := aggregate.UpdatedAt()
	return r.uow.stage(stagedWrite{
		aggregate: aggregate.Clone(),
		check: func(stored order.Snapshot, exists bool) error {
			if !exists {
				return errs.NewObjectNotFoundError("order", aggregate.ID())
			}
			if stored.PartnerID != nil {
				return order.ErrAlreadyAssigned
			}
			if !order.IsClaimableStatus(stored.Status) {
				return order.ErrNotClaimable
			}
			return nil
		},
		apply: func(stored order.Snapshot) order.Snapshot {
			id := *partnerID
			stored.PartnerID = &id
			stored.UpdatedAt = updatedAt
			return stored
		},
	})
}

func (r orderRepository) GetAllAvailableForClaim(ctx context.Context) ([]*order.Order, error) {
	return r.uow.store.GetAllAvailableForClaim(ctx)
}
