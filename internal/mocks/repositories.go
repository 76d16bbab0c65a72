package mocks

import (
	"context"
	"sync"

	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/breakthrough-cafe/cafe-cms/internal/repository"
)

// MockArticleRepository wraps the in-memory repository, recording calls and
// letting tests inject failures per method.
type MockArticleRepository struct {
	repository.ArticleRepository

	GetByIDErr error
	UpdateErr  error
	ListErr    error
	// UpdateMiss makes Update report no matching document
	UpdateMiss bool

	mu      sync.Mutex
	Updates []map[string]any
}

// Verify interface compliance
var _ repository.ArticleRepository = (*MockArticleRepository)(nil)

func NewMockArticleRepository() *MockArticleRepository {
	return &MockArticleRepository{
		ArticleRepository: repository.NewMemoryArticleRepo(),
		Updates:           make([]map[string]any, 0),
	}
}

func (m *MockArticleRepository) GetByID(ctx context.Context, id string) (*models.Article, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	return m.ArticleRepository.GetByID(ctx, id)
}

func (m *MockArticleRepository) List(ctx context.Context, q models.ArticleQuery) ([]*models.Article, int64, error) {
	if m.ListErr != nil {
		return nil, 0, m.ListErr
	}
	return m.ArticleRepository.List(ctx, q)
}

func (m *MockArticleRepository) Update(ctx context.Context, id string, set map[string]any) (bool, error) {
	m.mu.Lock()
	m.Updates = append(m.Updates, set)
	m.mu.Unlock()

	if m.UpdateErr != nil {
		return false, m.UpdateErr
	}
	if m.UpdateMiss {
		return false, nil
	}
	return m.ArticleRepository.Update(ctx, id, set)
}

// LastUpdate returns the most recent set passed to Update
func (m *MockArticleRepository) LastUpdate() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Updates) == 0 {
		return nil
	}
	return m.Updates[len(m.Updates)-1]
}

// MockCategoryRepository wraps the in-memory category repository and counts
// the inserts that reach it.
type MockCategoryRepository struct {
	repository.CategoryRepository

	SlugExistsErr error

	mu      sync.Mutex
	Creates int
}

var _ repository.CategoryRepository = (*MockCategoryRepository)(nil)

func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{CategoryRepository: repository.NewMemoryCategoryRepo()}
}

func (m *MockCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	m.mu.Lock()
	m.Creates++
	m.mu.Unlock()
	return m.CategoryRepository.Create(ctx, category)
}

func (m *MockCategoryRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	if m.SlugExistsErr != nil {
		return false, m.SlugExistsErr
	}
	return m.CategoryRepository.SlugExists(ctx, slug)
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	Err error
}

var _ repository.HealthChecker = (*MockHealthChecker)(nil)

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	return m.Err
}
