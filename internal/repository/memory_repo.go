package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/breakthrough-cafe/cafe-cms/internal/patch"
	"github.com/google/uuid"
)

// NewMemory creates repositories backed by process memory
func NewMemory() *Repositories {
	return &Repositories{
		Article:  NewMemoryArticleRepo(),
		Category: NewMemoryCategoryRepo(),
		Health:   memoryHealth{},
	}
}

type memoryHealth struct{}

func (memoryHealth) HealthCheck(ctx context.Context) error { return nil }

// memoryArticleRepo is an in-memory ArticleRepository. Documents are stored
// as copies so callers cannot mutate stored state through returned values.
type memoryArticleRepo struct {
	mu       sync.RWMutex
	articles map[string]*models.Article
}

// NewMemoryArticleRepo creates a new in-memory article repository
func NewMemoryArticleRepo() ArticleRepository {
	return &memoryArticleRepo{articles: make(map[string]*models.Article)}
}

func (r *memoryArticleRepo) Create(ctx context.Context, article *models.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	article.ID = uuid.New().String()
	r.articles[article.ID] = cloneArticle(article)
	return nil
}

func (r *memoryArticleRepo) GetByID(ctx context.Context, id string) (*models.Article, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrInvalidID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.articles[id]
	if !ok {
		return nil, nil
	}
	return cloneArticle(a), nil
}

func (r *memoryArticleRepo) List(ctx context.Context, q models.ArticleQuery) ([]*models.Article, int64, error) {
	r.mu.RLock()
	matched := make([]*models.Article, 0, len(r.articles))
	for _, a := range r.articles {
		if matchesFilter(a, q.Filter) {
			matched = append(matched, cloneArticle(a))
		}
	}
	r.mu.RUnlock()

	sortArticles(matched, q.SortBy, q.SortDesc)

	total := int64(len(matched))
	start := q.Skip
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	return matched[start:end], total, nil
}

func (r *memoryArticleRepo) Update(ctx context.Context, id string, set map[string]any) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, models.ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.articles[id]
	if !ok {
		return false, nil
	}
	updated := cloneArticle(a)
	if err := patch.Merge(updated, set); err != nil {
		return false, fmt.Errorf("failed to apply update: %w", err)
	}
	updated.ID = id
	r.articles[id] = updated
	return true, nil
}

func (r *memoryArticleRepo) IncrementViews(ctx context.Context, id string) (*models.Article, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.articles[id]
	if !ok {
		return nil, nil
	}
	a.Views++
	return cloneArticle(a), nil
}

func (r *memoryArticleRepo) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, models.ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.articles[id]; !ok {
		return false, nil
	}
	delete(r.articles, id)
	return true, nil
}

func (r *memoryArticleRepo) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.articles)), nil
}

func (r *memoryArticleRepo) StreamAll(ctx context.Context, filter models.ArticleFilter, callback func(*models.Article) error) error {
	items, _, err := r.List(ctx, models.ArticleQuery{Filter: filter, SortBy: models.SortByCreatedAt})
	if err != nil {
		return err
	}
	for _, a := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := callback(a); err != nil {
			return err
		}
	}
	return nil
}

// memoryCategoryRepo is an in-memory CategoryRepository keyed by slug
type memoryCategoryRepo struct {
	mu         sync.RWMutex
	categories map[string]*models.Category
}

// NewMemoryCategoryRepo creates a new in-memory category repository
func NewMemoryCategoryRepo() CategoryRepository {
	return &memoryCategoryRepo{categories: make(map[string]*models.Category)}
}

func (r *memoryCategoryRepo) Create(ctx context.Context, category *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.categories[category.Slug]; exists {
		return models.ErrDuplicateSlug
	}
	c := *category
	r.categories[c.Slug] = &c
	return nil
}

func (r *memoryCategoryRepo) List(ctx context.Context) ([]*models.Category, error) {
	r.mu.RLock()
	out := make([]*models.Category, 0, len(r.categories))
	for _, c := range r.categories {
		cp := *c
		out = append(out, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Slug < out[j].Slug
	})
	return out, nil
}

func (r *memoryCategoryRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.categories[slug]
	return exists, nil
}

// cloneArticle deep-copies an article. Tags and PublishedAt are the only
// fields that share memory.
func cloneArticle(a *models.Article) *models.Article {
	cp := *a
	if a.Tags != nil {
		cp.Tags = append(make([]string, 0, len(a.Tags)), a.Tags...)
	}
	if a.PublishedAt != nil {
		t := *a.PublishedAt
		cp.PublishedAt = &t
	}
	return &cp
}
