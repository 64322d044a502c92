package store

import (
	"context"
	"errors"
	"time"

	"github.com/veritas-stock/stockd/internal/catalog"
	dbutil "github.com/veritas-stock/stockd/internal/db"
	"github.com/veritas-stock/stockd/internal/models"
	"gorm.io/gorm"
)

// CatalogStore persists stock items with gorm.
type CatalogStore struct {
	db *gorm.DB
}

// NewCatalogStore constructs a CatalogStore.
func NewCatalogStore(db *gorm.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// SweepFeaturedExpired clears featured flags whose window ended before now in one conditional update.
func (s *CatalogStore) SweepFeaturedExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.StockItem{}).
		Where("featured_until IS NOT NULL AND featured_until < ?", now.UTC()).
		UpdateColumns(map[string]any{"is_featured": false, "featured_until": nil})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// SetFeatured sets the featured window of id to end at until.
func (s *CatalogStore) SetFeatured(ctx context.Context, id uint64, until time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.StockItem{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"is_featured": true, "featured_until": until.UTC()})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ClearFeatured removes the featured window of id.
func (s *CatalogStore) ClearFeatured(ctx context.Context, id uint64) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.StockItem{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"is_featured": false, "featured_until": nil})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// List returns items matching filter, newest first.
func (s *CatalogStore) List(ctx context.Context, filter catalog.ListFilter) ([]models.StockItem, error) {
	q := s.db.WithContext(ctx).Model(&models.StockItem{})
	if filter.Query != "" {
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(s.db, "title"), dbutil.ContainsPattern(s.db, filter.Query))
	}
	if filter.Gender != "" {
		q = q.Where("LOWER(gender) = ?", filter.Gender)
	}
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.FeaturedOnly {
		q = q.Where("is_featured = ?", true)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var items []models.StockItem
	if errFind := q.Order("created_at DESC").Order("id DESC").Find(&items).Error; errFind != nil {
		return nil, errFind
	}
	return items, nil
}

// Get returns the item with id, or nil when it does not exist.
func (s *CatalogStore) Get(ctx context.Context, id uint64) (*models.StockItem, error) {
	var item models.StockItem
	errFind := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if errFind != nil {
		return nil, errFind
	}
	return &item, nil
}

// Related returns up to limit random items in the same category, or from any category when item has none.
func (s *CatalogStore) Related(ctx context.Context, item *models.StockItem, limit int) ([]models.StockItem, error) {
	q := s.db.WithContext(ctx).Model(&models.StockItem{}).Where("id <> ?", item.ID)
	if item.CategoryID != nil {
		q = q.Where("category_id = ? OR category_id IS NULL", *item.CategoryID)
	}
	var items []models.StockItem
	if errFind := q.Order("RANDOM()").Limit(limit).Find(&items).Error; errFind != nil {
		return nil, errFind
	}
	return items, nil
}

// Create inserts item and fills its ID.
func (s *CatalogStore) Create(ctx context.Context, item *models.StockItem) error {
	return s.db.WithContext(ctx).Create(item).Error
}

// Update writes the editable columns of id.
func (s *CatalogStore) Update(ctx context.Context, id uint64, fields catalog.ItemFields) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.StockItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"title":       fields.Title,
			"price":       fields.Price,
			"stock":       fields.Quantity,
			"sizes":       fields.Sizes,
			"color":       fields.Color,
			"description": fields.Description,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// Delete removes id.
func (s *CatalogStore) Delete(ctx context.Context, id uint64) (int64, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.StockItem{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

var _ catalog.Store = (*CatalogStore)(nil)
