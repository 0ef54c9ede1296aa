package persistence

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/landplots/backend/internal/infrastructure/persistence/models"
)

// AutoMigrate creates or updates the plot tables from the GORM models. It is
// used for SQLite stores; PostgreSQL goes through the versioned migrations.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
