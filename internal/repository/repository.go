package repository

import (
	"context"

	"github.com/breakthrough-cafe/cafe-cms/internal/models"
)

// ArticleRepository defines the interface for article document operations.
// Lookups by a missing id return (nil, nil); ids the driver cannot parse
// return models.ErrInvalidID.
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	GetByID(ctx context.Context, id string) (*models.Article, error)
	List(ctx context.Context, q models.ArticleQuery) ([]*models.Article, int64, error)
	// Update sets each key of set on the document. It reports whether a
	// document matched; a match that changes nothing is still a success.
	Update(ctx context.Context, id string, set map[string]any) (bool, error)
	// IncrementViews atomically adds one view and returns the updated document
	IncrementViews(ctx context.Context, id string) (*models.Article, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int64, error)
	StreamAll(ctx context.Context, filter models.ArticleFilter, callback func(*models.Article) error) error
}

// CategoryRepository defines the interface for category document operations
type CategoryRepository interface {
	// Create inserts a category, returning models.ErrDuplicateSlug on conflict
	Create(ctx context.Context, category *models.Category) error
	// List returns categories ordered by order, then slug
	List(ctx context.Context) ([]*models.Category, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Repositories holds all repository interfaces
type Repositories struct {
	Article  ArticleRepository
	Category CategoryRepository
	Health   HealthChecker
}
