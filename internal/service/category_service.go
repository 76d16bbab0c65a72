package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/breakthrough-cafe/cafe-cms/internal/repository"
	"github.com/breakthrough-cafe/cafe-cms/internal/validation"
	"github.com/rs/zerolog"
)

// categoryService is the concrete implementation of CategoryService
type categoryService struct {
	repo repository.CategoryRepository
	log  zerolog.Logger
}

// newCategoryService creates a new CategoryService
func newCategoryService(repo repository.CategoryRepository, log zerolog.Logger) *categoryService {
	return &categoryService{
		repo: repo,
		log:  log.With().Str("service", "category").Logger(),
	}
}

func (s *categoryService) Create(ctx context.Context, in *models.CategoryInput) (*models.Category, error) {
	if err := validation.ValidateCategory(in).Err(); err != nil {
		return nil, err
	}

	// The unique index still guards concurrent creates
	exists, err := s.repo.SlugExists(ctx, in.Slug)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if exists {
		return nil, models.ErrDuplicateSlug
	}

	ts := now()
	category := &models.Category{
		Slug:        in.Slug,
		Title:       in.Title,
		Description: in.Description,
		Icon:        in.Icon,
		Color:       in.Color,
		Order:       in.Order,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}

	if err := s.repo.Create(ctx, category); err != nil {
		if errors.Is(err, models.ErrDuplicateSlug) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.log.Info().Str("slug", category.Slug).Msg("Category created")
	return category, nil
}

func (s *categoryService) List(ctx context.Context) ([]*models.Category, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	if categories == nil {
		categories = []*models.Category{}
	}
	return categories, nil
}
