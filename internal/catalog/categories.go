package catalog

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/karyana-pos/karyana-pos/internal/shared"
)

// CreateCategory adds a category.
func (s *Service) CreateCategory(ctx context.Context, name string) (int64, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return 0, ErrNameBlank
	}
	return s.repo.CreateCategory(ctx, name)
}

// GetCategory loads one category.
func (s *Service) GetCategory(ctx context.Context, id int64) (Category, error) {
	if id <= 0 {
		return Category{}, shared.ErrNotFound
	}
	return s.repo.GetCategory(ctx, id)
}

// UpdateCategory renames a category.
func (s *Service) UpdateCategory(ctx context.Context, id int64, name string) error {
	if id <= 0 {
		return shared.ErrNotFound
	}
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return ErrNameBlank
	}
	return s.repo.UpdateCategory(ctx, id, name)
}

// DeleteCategory removes a category. The products FK is ON DELETE SET NULL,
// so products in the category survive with their category_id cleared.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrNotFound
	}
	return s.repo.DeleteCategory(ctx, id)
}

// ListCategories lists categories by name.
func (s *Service) ListCategories(ctx context.Context, limit, offset int) ([]Category, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.repo.ListCategories(ctx, limit, offset)
}
