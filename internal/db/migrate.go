package db

import (
	"fmt"

	"github.com/veritas-stock/stockd/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or upgrades the schema for admins and catalog entries.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(&models.Admin{}, &models.StockItem{}); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	return nil
}
