package locationrepo

import (
	"context"
	"time"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/ports"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChannelPartnerLocation is the LISTEN/NOTIFY channel carrying partner positions as JSON.
const ChannelPartnerLocation = "partner_location"

// Clock returns the current time.
type Clock func() time.Time

// GormPartnerLocationSink implements ports.PartnerLocationSink on a postgres table.
// The upsert and its pg_notify run in one transaction so listeners never see
// a position that was not stored.
type GormPartnerLocationSink struct {
	db    *gorm.DB
	clock Clock
}

var _ ports.PartnerLocationSink = (*GormPartnerLocationSink)(nil)

// NewGormPartnerLocationSink creates the sink. A nil clock uses time.Now.
func NewGormPartnerLocationSink(db *gorm.DB, clock Clock) *GormPartnerLocationSink {
	if clock == nil {
		clock = time.Now
	}
	return &GormPartnerLocationSink{db: db, clock: clock}
}

// Broadcast stores the partner's position and notifies listeners.
func (s *GormPartnerLocationSink) Broadcast(ctx context.Context, partnerID kernel.UUID, c kernel.Coordinate) error {
	if err := partnerID.Validate(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	payload, err := EncodePayload(partnerID, c)
	if err != nil {
		return err
	}

	dto := PartnerLocationDTO{
		PartnerID: partnerID.Bytes(),
		Lat:       c.Lat(),
		Lng:       c.Lng(),
		UpdatedAt: s.clock().UTC(),
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "partner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"lat", "lng", "updated_at"}),
		}).Create(&dto).Error
		if err != nil {
			return err
		}
		return tx.Exec("SELECT pg_notify(?, ?)", ChannelPartnerLocation, payload).Error
	})
}

// Last returns the stored position of a partner, if any.
func (s *GormPartnerLocationSink) Last(ctx context.Context, partnerID kernel.UUID) (kernel.Coordinate, bool, error) {
	var dto PartnerLocationDTO
	err := s.db.WithContext(ctx).
		Where("partner_id = ?", partnerID.Bytes()).
		Limit(1).
		Find(&dto).Error
	if err != nil {
		return kernel.Coordinate{}, false, err
	}
	if dto.PartnerID == uuid.Nil {
		return kernel.Coordinate{}, false, nil
	}

	c, err := kernel.NewCoordinate(dto.Lat, dto.Lng)
	if err != nil {
		return kernel.Coordinate{}, false, err
	}
	return c, true, nil
}
