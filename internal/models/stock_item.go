package models

import (
	"time"

	"gorm.io/datatypes"
)

// StockItem is a catalog entry listed for sale.
type StockItem struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	SellerID   uint64  `gorm:"not null;default:1"` // Owning seller ID.
	Title      string  `gorm:"type:text;not null"` // Display title.
	Price      int64   `gorm:"not null"`           // Price in whole currency units.
	Gender     string  `gorm:"type:text"`          // Target audience label.
	CategoryID *uint64 `gorm:"index"`              // Related category ID.

	Quantity int `gorm:"column:stock;not null;default:0"` // Units in stock.

	Sizes       string `gorm:"type:text"` // Comma separated sizes.
	Color       string `gorm:"type:text"` // Color label.
	Description string `gorm:"type:text"` // Free-form description.

	Images datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Image URLs as a JSON array.

	IsSold bool `gorm:"not null;default:false"` // Sold marker.

	IsFeatured    bool       `gorm:"not null;default:false"` // Featured flag.
	FeaturedUntil *time.Time `gorm:"index"`                  // End of the featured window.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`       // Last update timestamp.
}

// TableName overrides the default table name.
func (StockItem) TableName() string {
	return "stock"
}

// FeaturedAt reports whether the featured window is still open at now.
func (s *StockItem) FeaturedAt(now time.Time) bool {
	return s.IsFeatured && s.FeaturedUntil != nil && s.FeaturedUntil.After(now)
}
