package catalog

import (
	"context"
	"time"

	"github.com/veritas-stock/stockd/internal/models"
)

// ListFilter narrows catalog listings.
type ListFilter struct {
	Query        string
	Gender       string
	CategoryID   *uint64
	FeaturedOnly bool
	Limit        int
	Offset       int
}

// ItemFields are the columns an admin edit may change.
type ItemFields struct {
	Title       string
	Price       int64
	Quantity    int
	Sizes       string
	Color       string
	Description string
}

// Store is the persistence contract of the catalog.
// Mutations return the number of rows they matched.
type Store interface {
	SweepFeaturedExpired(ctx context.Context, now time.Time) (int64, error)
	SetFeatured(ctx context.Context, id uint64, until time.Time) (int64, error)
	ClearFeatured(ctx context.Context, id uint64) (int64, error)

	List(ctx context.Context, filter ListFilter) ([]models.StockItem, error)
	// Get returns nil and no error when id does not exist.
	Get(ctx context.Context, id uint64) (*models.StockItem, error)
	Related(ctx context.Context, item *models.StockItem, limit int) ([]models.StockItem, error)
	Create(ctx context.Context, item *models.StockItem) error
	Update(ctx context.Context, id uint64, fields ItemFields) (int64, error)
	Delete(ctx context.Context, id uint64) (int64, error)
}
