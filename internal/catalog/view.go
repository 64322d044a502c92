package catalog

import (
	"strings"
	"time"

	"github.com/veritas-stock/stockd/internal/models"
)

// ItemView is the JSON shape of a catalog entry.
type ItemView struct {
	ID            uint64     `json:"id"`
	SellerID      uint64     `json:"seller_id"`
	Title         string     `json:"title"`
	Price         int64      `json:"price"`
	Gender        string     `json:"gender"`
	CategoryID    *uint64    `json:"category_id"`
	Stock         int        `json:"stock"`
	Sizes         string     `json:"sizes"`
	Color         string     `json:"color"`
	Description   string     `json:"description"`
	Images        []string   `json:"images"`
	IsSold        bool       `json:"is_sold"`
	IsFeatured    bool       `json:"is_featured"`
	FeaturedUntil *time.Time `json:"featured_until"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewItemView converts a stored item into its JSON shape.
func NewItemView(item models.StockItem) ItemView {
	return ItemView{
		ID:            item.ID,
		SellerID:      item.SellerID,
		Title:         item.Title,
		Price:         item.Price,
		Gender:        strings.ToLower(item.Gender),
		CategoryID:    item.CategoryID,
		Stock:         item.Quantity,
		Sizes:         item.Sizes,
		Color:         item.Color,
		Description:   item.Description,
		Images:        DecodeImages(item.Images),
		IsSold:        item.IsSold,
		IsFeatured:    item.IsFeatured,
		FeaturedUntil: item.FeaturedUntil,
		CreatedAt:     item.CreatedAt,
	}
}

// NewItemViews converts a slice of stored items.
func NewItemViews(items []models.StockItem) []ItemView {
	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, NewItemView(item))
	}
	return views
}
