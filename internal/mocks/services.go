package mocks

import (
	"context"
	"io"

	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/breakthrough-cafe/cafe-cms/internal/service"
)

// MockArticleService is a mock implementation of ArticleService
type MockArticleService struct {
	CreateFunc func(ctx context.Context, in *models.ArticleInput) (*models.Article, error)
	GetFunc    func(ctx context.Context, id string) (*models.Article, error)
	ListFunc   func(ctx context.Context, q models.ArticleQuery) (*models.ArticleList, error)
	UpdateFunc func(ctx context.Context, id string, p *models.ArticlePatch) (*models.Article, error)
	DeleteFunc func(ctx context.Context, id string) error

	Created   []*models.ArticleInput
	Patches   []*models.ArticlePatch
	Queries   []models.ArticleQuery
	Deleted   []string
	Articles  map[string]*models.Article
	TotalRows int64
}

// Verify interface compliance
var _ service.ArticleService = (*MockArticleService)(nil)

func NewMockArticleService() *MockArticleService {
	return &MockArticleService{
		Created:  make([]*models.ArticleInput, 0),
		Patches:  make([]*models.ArticlePatch, 0),
		Queries:  make([]models.ArticleQuery, 0),
		Deleted:  make([]string, 0),
		Articles: make(map[string]*models.Article),
	}
}

func (m *MockArticleService) Create(ctx context.Context, in *models.ArticleInput) (*models.Article, error) {
	m.Created = append(m.Created, in)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, in)
	}
	article := &models.Article{
		ID:     "test-article-id",
		Title:  in.Title,
		Author: in.Author,
		Status: in.Status,
	}
	m.Articles[article.ID] = article
	return article, nil
}

func (m *MockArticleService) Get(ctx context.Context, id string) (*models.Article, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	if article, ok := m.Articles[id]; ok {
		article.Views++
		return article, nil
	}
	return nil, models.ErrNotFound
}

func (m *MockArticleService) List(ctx context.Context, q models.ArticleQuery) (*models.ArticleList, error) {
	m.Queries = append(m.Queries, q)
	if m.ListFunc != nil {
		return m.ListFunc(ctx, q)
	}
	items := make([]*models.Article, 0, len(m.Articles))
	for _, a := range m.Articles {
		items = append(items, a)
	}
	return models.NewArticleList(items, int64(len(items)), q), nil
}

func (m *MockArticleService) Update(ctx context.Context, id string, p *models.ArticlePatch) (*models.Article, error) {
	m.Patches = append(m.Patches, p)
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, p)
	}
	article, ok := m.Articles[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if p.Title != nil {
		article.Title = *p.Title
	}
	return article, nil
}

func (m *MockArticleService) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	if _, ok := m.Articles[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.Articles, id)
	m.Deleted = append(m.Deleted, id)
	return nil
}

func (m *MockArticleService) Count(ctx context.Context) (int64, error) {
	return m.TotalRows, nil
}

// MockCategoryService is a mock implementation of CategoryService
type MockCategoryService struct {
	CreateFunc func(ctx context.Context, in *models.CategoryInput) (*models.Category, error)
	ListFunc   func(ctx context.Context) ([]*models.Category, error)
	Categories []*models.Category
}

var _ service.CategoryService = (*MockCategoryService)(nil)

func NewMockCategoryService() *MockCategoryService {
	return &MockCategoryService{Categories: make([]*models.Category, 0)}
}

func (m *MockCategoryService) Create(ctx context.Context, in *models.CategoryInput) (*models.Category, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, in)
	}
	for _, c := range m.Categories {
		if c.Slug == in.Slug {
			return nil, models.ErrDuplicateSlug
		}
	}
	category := &models.Category{Slug: in.Slug, Title: in.Title, Description: in.Description, Order: in.Order}
	m.Categories = append(m.Categories, category)
	return category, nil
}

func (m *MockCategoryService) List(ctx context.Context) ([]*models.Category, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return m.Categories, nil
}

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	StreamFunc func(ctx context.Context, w io.Writer, format string, filter models.ArticleFilter) (int, error)
	Filters    []models.ArticleFilter
}

var _ service.ExportService = (*MockExportService)(nil)

func NewMockExportService() *MockExportService {
	return &MockExportService{Filters: make([]models.ArticleFilter, 0)}
}

func (m *MockExportService) StreamArticles(ctx context.Context, w io.Writer, format string, filter models.ArticleFilter) (int, error) {
	m.Filters = append(m.Filters, filter)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, w, format, filter)
	}
	return 0, nil
}
