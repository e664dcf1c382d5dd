// Package locationrepo stores the last broadcast position of every delivery
// partner and signals each write on a LISTEN/NOTIFY channel.
package locationrepo

import (
	"encoding/json"
	"time"

	"ordertrack/internal/core/domain/model/kernel"

	"github.com/google/uuid"
)

// PartnerLocationDTO is one row per partner holding the latest broadcast position.
type PartnerLocationDTO struct {
	PartnerID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Lat       float64   `gorm:"not null"`
	Lng       float64   `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false;not null"`
}

// TableName specifies the database table name for partner locations.
func (PartnerLocationDTO) TableName() string {
	return "partner_locations"
}

// Payload is the JSON body sent on ChannelPartnerLocation.
type Payload struct {
	PartnerID string  `json:"partner_id"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
}

// EncodePayload builds the notification body for a partner position.
func EncodePayload(partnerID kernel.UUID, c kernel.Coordinate) (string, error) {
	b, err := json.Marshal(Payload{PartnerID: partnerID.String(), Lat: c.Lat(), Lng: c.Lng()})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodePayload parses a notification body back into the partner and its position.
func DecodePayload(raw string) (kernel.UUID, kernel.Coordinate, error) {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return kernel.UUID{}, kernel.Coordinate{}, err
	}

	partnerID, err := kernel.UUIDFromString(p.PartnerID)
	if err != nil {
		return kernel.UUID{}, kernel.Coordinate{}, err
	}
	c, err := kernel.NewCoordinate(p.Lat, p.Lng)
	if err != nil {
		return kernel.UUID{}, kernel.Coordinate{}, err
	}
	return partnerID, c, nil
}
