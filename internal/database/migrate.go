package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/learnhub-api/internal/models"
)

// Migrate creates or updates every table and index the API depends on.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
