// Package orderrepo provides data transfer objects and mapping functions for order persistence.
// This package implements the repository pattern for the order domain aggregate, handling
// the conversion between domain entities and database representations.
package orderrepo

import (
	"time"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"

	"github.com/google/uuid"
)

// OrderDTO represents the database structure for persisting order aggregates.
// Status and mode are stored by their codes ("on_way", "delivery") and indexed
// for the available-orders scan.
type OrderDTO struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Mode       string     `gorm:"type:varchar(16);not null;index:idx_orders_available,priority:1"`
	Status     string     `gorm:"type:varchar(16);not null;index:idx_orders_available,priority:2"`
	CustomerID uuid.UUID  `gorm:"type:uuid;not null;index"`
	MerchantID uuid.UUID  `gorm:"type:uuid;not null;index"`
	PartnerID  *uuid.UUID `gorm:"type:uuid;index"`
	Pickup     PointDTO   `gorm:"embedded;embeddedPrefix:pickup_"`
	DropLat    *float64
	DropLng    *float64
	TotalMinor int64
	CreatedAt  time.Time `gorm:"autoCreateTime:false;index"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime:false"`
}

// TableName specifies the database table name for order entities.
// Overrides GORM's default naming convention to use "orders".
func (OrderDTO) TableName() string {
	return "orders"
}

// PointDTO is an embedded coordinate pair.
type PointDTO struct {
	Lat float64 `gorm:"not null"`
	Lng float64 `gorm:"not null"`
}

// fromDomain converts an order domain aggregate to its database representation.
func fromDomain(aggregate *order.Order) OrderDTO {
	s := aggregate.Snapshot()

	var partnerID *uuid.UUID
	if s.PartnerID != nil {
		raw := s.PartnerID.Bytes()
		partnerID = &raw
	}

	dto := OrderDTO{
		ID:         s.ID.Bytes(),
		Mode:       s.Mode.Code(),
		Status:     s.Status.Code(),
		CustomerID: s.CustomerID.Bytes(),
		MerchantID: s.MerchantID.Bytes(),
		PartnerID:  partnerID,
		Pickup:     PointDTO{Lat: s.PickupPoint.Lat(), Lng: s.PickupPoint.Lng()},
		TotalMinor: s.TotalMinor,
		CreatedAt:  s.CreatedAt.UTC(),
		UpdatedAt:  s.UpdatedAt.UTC(),
	}
	if s.DropPoint != nil {
		lat, lng := s.DropPoint.Lat(), s.DropPoint.Lng()
		dto.DropLat = &lat
		dto.DropLng = &lng
	}
	return dto
}

// toDomain converts a database DTO to an order domain aggregate using RestoreOrder.
func toDomain(dto OrderDTO) (*order.Order, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	customerID, err := kernel.UUIDFromBytes(dto.CustomerID[:])
	if err != nil {
		return nil, err
	}
	merchantID, err := kernel.UUIDFromBytes(dto.MerchantID[:])
	if err != nil {
		return nil, err
	}

	var partnerID *kernel.UUID
	if dto.PartnerID != nil {
		pID, partnerErr := kernel.UUIDFromBytes((*dto.PartnerID)[:])
		if partnerErr != nil {
			return nil, partnerErr
		}
		partnerID = &pID
	}

	mode, err := order.ModeFromCode(dto.Mode)
	if err != nil {
		return nil, err
	}
	status, err := order.StatusFromCode(dto.Status)
	if err != nil {
		return nil, err
	}

	pickup, err := kernel.NewCoordinate(dto.Pickup.Lat, dto.Pickup.Lng)
	if err != nil {
		return nil, err
	}

	var drop *kernel.Coordinate
	if dto.DropLat != nil && dto.DropLng != nil {
		d, dropErr := kernel.NewCoordinate(*dto.DropLat, *dto.DropLng)
		if dropErr != nil {
			return nil, dropErr
		}
		drop = &d
	}

	return order.RestoreOrder(order.Snapshot{
		ID:          id,
		Mode:        mode,
		Status:      status,
		CustomerID:  customerID,
		MerchantID:  merchantID,
		PartnerID:   partnerID,
		PickupPoint: pickup,
		DropPoint:   drop,
		TotalMinor:  dto.TotalMinor,
		CreatedAt:   dto.CreatedAt,
		UpdatedAt:   dto.UpdatedAt,
	})
}
