package store

import (
	"context"
	"errors"
	"strings"

	"github.com/veritas-stock/stockd/internal/auth"
	"github.com/veritas-stock/stockd/internal/models"
	"gorm.io/gorm"
)

// AdminStore reads and provisions admin principals with gorm.
type AdminStore struct {
	db *gorm.DB
}

// NewAdminStore constructs an AdminStore.
func NewAdminStore(db *gorm.DB) *AdminStore {
	return &AdminStore{db: db}
}

// FindActiveByUsername returns the active admin with username, or nil.
func (s *AdminStore) FindActiveByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var admin models.Admin
	errFind := s.db.WithContext(ctx).
		Where("username = ? AND active = ?", strings.TrimSpace(username), true).
		First(&admin).Error
	return foundAdmin(&admin, errFind)
}

// FindActiveByID returns the active admin with id, or nil.
func (s *AdminStore) FindActiveByID(ctx context.Context, id uint64) (*models.Admin, error) {
	var admin models.Admin
	errFind := s.db.WithContext(ctx).
		Where("id = ? AND active = ?", id, true).
		First(&admin).Error
	return foundAdmin(&admin, errFind)
}

// CreateIfMissing inserts admin unless an account with the same username exists.
// It reports whether a row was created.
func (s *AdminStore) CreateIfMissing(ctx context.Context, admin *models.Admin) (bool, error) {
	var count int64
	if errCount := s.db.WithContext(ctx).
		Model(&models.Admin{}).
		Where("username = ?", admin.Username).
		Count(&count).Error; errCount != nil {
		return false, errCount
	}
	if count > 0 {
		return false, nil
	}
	if errCreate := s.db.WithContext(ctx).Create(admin).Error; errCreate != nil {
		return false, errCreate
	}
	return true, nil
}

// SetActive toggles whether an admin may sign in.
func (s *AdminStore) SetActive(ctx context.Context, id uint64, active bool) error {
	return s.db.WithContext(ctx).
		Model(&models.Admin{}).
		Where("id = ?", id).
		Update("active", active).Error
}

func foundAdmin(admin *models.Admin, errFind error) (*models.Admin, error) {
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if errFind != nil {
		return nil, errFind
	}
	return admin, nil
}

var _ auth.PrincipalStore = (*AdminStore)(nil)
