package orderrepo

import (
	"context"
	"errors"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"
	"ordertrack/internal/pkg/errs"

	"gorm.io/gorm"
)

// ChannelOrderChanged is the LISTEN/NOTIFY channel carrying the id of every changed order.
const ChannelOrderChanged = "order_changed"

// GormOrderRepository implements OrderRepository using GORM.
//
// Status and partner writes are conditional UPDATEs: the WHERE clause holds
// the expected state and zero affected rows means another writer got there
// first. Every successful write issues pg_notify on ChannelOrderChanged, which
// Postgres delivers when the surrounding transaction commits.
type GormOrderRepository struct {
	db      *gorm.DB
	tracker aggregateTracker
}

// aggregateTracker defines the interface for tracking aggregates.
type aggregateTracker interface {
	TrackAggregate(id kernel.UUID, aggregate any)
}

// NewGormOrderRepository creates a new GORM order repository.
func NewGormOrderRepository(db *gorm.DB, tracker aggregateTracker) *GormOrderRepository {
	return &GormOrderRepository{
		db:      db,
		tracker: tracker,
	}
}

// NewGormOrderReader creates a repository for reads outside a unit of work.
func NewGormOrderReader(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Add saves a new order to the database.
func (r *GormOrderRepository) Add(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.NewValueIsInvalidErrorWithCause("order already exists", err)
		}
		return err
	}

	if err := r.notify(ctx, aggregate.ID()); err != nil {
		return err
	}
	r.track(aggregate)
	return nil
}

// Get retrieves an order by ID.
func (r *GormOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto OrderDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("order", id.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// UpdateStatus stores the aggregate's status only while the stored status is still expected.
// Cancelled and Rejected are written only while no partner is stored.
//
// Returns:
//   - errs.ConflictError carrying both statuses when the stored status moved on
//   - order.ErrPartnerReleaseRequired when a partner claimed the order before an abort
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, aggregate *order.Order, expected order.Status) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	abort := order.IsAbortStatus(aggregate.Status())
	query := r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Where("id = ? AND status = ?", aggregate.ID().Bytes(), expected.Code())
	if abort {
		query = query.Where("partner_id IS NULL")
	}
	result := query.Updates(map[string]any{
		"status":     aggregate.Status().Code(),
		"updated_at": aggregate.UpdatedAt().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		stored, err := r.Get(ctx, aggregate.ID())
		if err != nil {
			return err
		}
		if stored.Status() != expected {
			return errs.NewConflictError("order status", expected, stored.Status())
		}
		if abort && stored.HasPartner() {
			return order.ErrPartnerReleaseRequired
		}
		return errs.NewConflictError("order status", expected, stored.Status())
	}

	if err := r.notify(ctx, aggregate.ID()); err != nil {
		return err
	}
	r.track(aggregate)
	return nil
}

// Claim stores the aggregate's partner only if none is stored yet and the
// stored order still accepts claims.
//
// Returns:
//   - order.ErrAlreadyAssigned when another partner won
//   - order.ErrNotClaimable when the order moved out of the claimable statuses
func (r *GormOrderRepository) Claim(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	partnerID := aggregate.PartnerID()
	if partnerID == nil {
		return order.ErrPartnerRequired
	}

	result := r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Where("id = ? AND partner_id IS NULL AND mode = ? AND status IN ?",
			aggregate.ID().Bytes(), order.Delivery.Code(), claimableCodes()).
		Updates(map[string]any{
			"partner_id": partnerID.Bytes(),
			"updated_at": aggregate.UpdatedAt().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		stored, err := r.Get(ctx, aggregate.ID())
		if err != nil {
			return err
		}
		if stored.HasPartner() {
			return order.ErrAlreadyAssigned
		}
		return order.ErrNotClaimable
	}

	if err := r.notify(ctx, aggregate.ID()); err != nil {
		return err
	}
	r.track(aggregate)
	return nil
}

// GetAllAvailableForClaim returns unassigned Delivery orders in a claimable status, newest first.
func (r *GormOrderRepository) GetAllAvailableForClaim(ctx context.Context) ([]*order.Order, error) {
	var dtos []OrderDTO
	err := r.db.WithContext(ctx).
		Where("mode = ? AND partner_id IS NULL AND status IN ?", order.Delivery.Code(), claimableCodes()).
		Order("created_at DESC").
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}

	orders := make([]*order.Order, 0, len(dtos))
	for _, dto := range dtos {
		o, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	return orders, nil
}

func (r *GormOrderRepository) notify(ctx context.Context, id kernel.UUID) error {
	return r.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", ChannelOrderChanged, id.String()).Error
}

func (r *GormOrderRepository) track(aggregate *order.Order) {
	if r.tracker != nil {
		r.tracker.TrackAggregate(aggregate.ID(), aggregate)
	}
}

func claimableCodes() []string {
	all := []order.Status{
		order.Pending, order.Accepted, order.Preparing, order.Ready, order.OnTheWay,
		order.PickedUp, order.Delivered, order.Cancelled, order.Rejected,
	}
	codes := make([]string, 0, len(all))
	for _, s := range all {
		if order.IsClaimableStatus(s) {
			codes = append(codes, s.Code())
		}
	}
	return codes
}
