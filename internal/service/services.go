package service

import (
	"context"
	"io"

	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/breakthrough-cafe/cafe-cms/internal/repository"
	"github.com/rs/zerolog"
)

// ArticleService defines the interface for article operations
type ArticleService interface {
	Create(ctx context.Context, in *models.ArticleInput) (*models.Article, error)
	// Get returns the article after incrementing its view count
	Get(ctx context.Context, id string) (*models.Article, error)
	List(ctx context.Context, q models.ArticleQuery) (*models.ArticleList, error)
	Update(ctx context.Context, id string, p *models.ArticlePatch) (*models.Article, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// CategoryService defines the interface for category operations
type CategoryService interface {
	Create(ctx context.Context, in *models.CategoryInput) (*models.Category, error)
	List(ctx context.Context) ([]*models.Category, error)
}

// ExportService defines the interface for export operations
type ExportService interface {
	// StreamArticles writes every article matching filter to w in format
	// ("ndjson" or "json") and returns how many were written.
	StreamArticles(ctx context.Context, w io.Writer, format string, filter models.ArticleFilter) (int, error)
}

// Services holds all service interfaces
type Services struct {
	Article  ArticleService
	Category CategoryService
	Export   ExportService
	Health   repository.HealthChecker
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, log zerolog.Logger) *Services {
	return &Services{
		Article:  newArticleService(repos.Article, log),
		Category: newCategoryService(repos.Category, log),
		Export:   newExportService(repos.Article, log),
		Health:   repos.Health,
	}
}
