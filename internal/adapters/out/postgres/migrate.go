package postgres

import (
	"ordertrack/internal/adapters/out/postgres/locationrepo"
	"ordertrack/internal/adapters/out/postgres/orderrepo"

	"gorm.io/gorm"
)

// Migrate creates or updates the tables of the order and partner location stores.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&orderrepo.OrderDTO{}, &locationrepo.PartnerLocationDTO{})
}
