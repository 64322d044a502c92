package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/veritas-stock/stockd/internal/models"
)

// ErrInvalidItem is returned when an item fails validation.
var ErrInvalidItem = errors.New("invalid catalog item")

// defaultSellerID is assigned to every new item.
const defaultSellerID = 1

// DefaultRelatedLimit is the number of related items shown with a detail read.
const DefaultRelatedLimit = 4

// ItemInput carries the fields of a new or edited item.
type ItemInput struct {
	Title       string
	Price       int64
	Gender      string
	CategoryID  uint64
	Quantity    int
	Sizes       string
	Color       string
	Description string
	Images      []string
}

// normalize trims free-text fields.
func (in ItemInput) normalize() ItemInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Gender = strings.ToLower(strings.TrimSpace(in.Gender))
	in.Sizes = strings.TrimSpace(in.Sizes)
	in.Color = strings.TrimSpace(in.Color)
	in.Description = strings.TrimSpace(in.Description)
	return in
}

// Service serves catalog reads and admin edits. Reads sweep expired featured flags first.
type Service struct {
	store   Store
	sweeper *Sweeper
}

// NewService constructs a Service.
func NewService(store Store, sweeper *Sweeper) *Service {
	return &Service{store: store, sweeper: sweeper}
}

// Sweeper returns the featured-window sweeper.
func (s *Service) Sweeper() *Sweeper {
	return s.sweeper
}

// List sweeps expired featured flags and returns matching items, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]models.StockItem, error) {
	if _, err := s.sweeper.SweepExpired(ctx); err != nil {
		return nil, err
	}
	filter.Query = strings.TrimSpace(filter.Query)
	filter.Gender = strings.ToLower(strings.TrimSpace(filter.Gender))
	items, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	return items, nil
}

// Get sweeps expired featured flags and returns one item.
func (s *Service) Get(ctx context.Context, id uint64) (*models.StockItem, error) {
	if _, err := s.sweeper.SweepExpired(ctx); err != nil {
		return nil, err
	}
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("catalog: get item %d: %w", id, err)
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	return item, nil
}

// Related returns up to limit other items sharing the category of item.
func (s *Service) Related(ctx context.Context, item *models.StockItem, limit int) ([]models.StockItem, error) {
	if item == nil {
		return nil, ErrItemNotFound
	}
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	related, err := s.store.Related(ctx, item, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: related items %d: %w", item.ID, err)
	}
	return related, nil
}

// Create validates and stores a new item.
func (s *Service) Create(ctx context.Context, in ItemInput) (*models.StockItem, error) {
	in = in.normalize()
	if err := validateEdit(in.Title, in.Price); err != nil {
		return nil, err
	}
	if in.Gender == "" || in.CategoryID == 0 {
		return nil, fmt.Errorf("%w: gender and category are required", ErrInvalidItem)
	}
	if in.Quantity < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", ErrInvalidItem)
	}

	categoryID := in.CategoryID
	item := &models.StockItem{
		SellerID:    defaultSellerID,
		Title:       in.Title,
		Price:       in.Price,
		Gender:      in.Gender,
		CategoryID:  &categoryID,
		Quantity:    in.Quantity,
		Sizes:       in.Sizes,
		Color:       in.Color,
		Description: in.Description,
		Images:      EncodeImages(in.Images),
	}
	if err := s.store.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("catalog: create item: %w", err)
	}
	return item, nil
}

// Update validates and applies an admin edit.
func (s *Service) Update(ctx context.Context, id uint64, in ItemInput) error {
	in = in.normalize()
	if err := validateEdit(in.Title, in.Price); err != nil {
		return err
	}
	if in.Quantity < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidItem)
	}
	n, err := s.store.Update(ctx, id, ItemFields{
		Title:       in.Title,
		Price:       in.Price,
		Quantity:    in.Quantity,
		Sizes:       in.Sizes,
		Color:       in.Color,
		Description: in.Description,
	})
	if err != nil {
		return fmt.Errorf("catalog: update item %d: %w", id, err)
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, id uint64) error {
	n, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("catalog: delete item %d: %w", id, err)
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}

func validateEdit(title string, price int64) error {
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidItem)
	}
	if price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidItem)
	}
	return nil
}
