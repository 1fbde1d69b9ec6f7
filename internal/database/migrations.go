package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/flagforge/flagforge/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Player{},
		&models.Profile{},
		&models.Machine{},
		&models.UserFlag{},
		&models.SiteIP{},
		&models.Admin{},
		&models.Session{},
		&models.CacheEntry{},
	)
}

// SeedData inserts the records the application expects at runtime. It is safe
// to call repeatedly.
func SeedData(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	if err := ensureSiteIPRow(db); err != nil {
		return fmt.Errorf("seed site ip: %w", err)
	}

	return nil
}

// ensureSiteIPRow guarantees the singleton site_ip row exists so that reads
// and the admin editor always have a row to work with.
func ensureSiteIPRow(db *gorm.DB) error {
	var existing models.SiteIP
	err := db.First(&existing, "id = ?", models.SiteIPRowID).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	row := models.SiteIP{ID: models.SiteIPRowID, IPAddress: "0.0.0.0"}
	return db.Create(&row).Error
}
