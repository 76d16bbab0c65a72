package service

import (
	"context"
	"fmt"
	"time"

	"github.com/breakthrough-cafe/cafe-cms/internal/metrics"
	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/breakthrough-cafe/cafe-cms/internal/patch"
	"github.com/breakthrough-cafe/cafe-cms/internal/repository"
	"github.com/breakthrough-cafe/cafe-cms/internal/validation"
	"github.com/rs/zerolog"
)

// articleService is the concrete implementation of ArticleService
type articleService struct {
	repo repository.ArticleRepository
	log  zerolog.Logger
}

// newArticleService creates a new ArticleService
func newArticleService(repo repository.ArticleRepository, log zerolog.Logger) *articleService {
	return &articleService{
		repo: repo,
		log:  log.With().Str("service", "article").Logger(),
	}
}

// now is truncated to the coarsest precision any store keeps
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (s *articleService) Create(ctx context.Context, in *models.ArticleInput) (*models.Article, error) {
	if err := validation.ValidateArticle(in).Err(); err != nil {
		return nil, err
	}

	ts := now()
	article := &models.Article{
		Title:      in.Title,
		Excerpt:    in.Excerpt,
		Content:    in.Content,
		ReadTime:   in.ReadTime,
		Category:   in.Category,
		Tags:       in.Tags,
		IsFeatured: in.IsFeatured,
		Author:     in.Author,
		Status:     in.Status,
		CoverImage: in.CoverImage,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	if article.Tags == nil {
		article.Tags = []string{}
	}
	if article.Status == "" {
		article.Status = models.StatusDraft
	}
	if article.Status == models.StatusPublished {
		article.PublishedAt = &ts
	}

	if err := s.repo.Create(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}

	metrics.RecordArticleWrite(metrics.OpCreate)
	s.refreshTotal(ctx)

	s.log.Info().
		Str("article_id", article.ID).
		Str("status", string(article.Status)).
		Msg("Article created")

	return article, nil
}

func (s *articleService) Get(ctx context.Context, id string) (*models.Article, error) {
	article, err := s.repo.IncrementViews(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	if article == nil {
		return nil, models.ErrNotFound
	}

	metrics.RecordArticleView()
	return article, nil
}

func (s *articleService) List(ctx context.Context, q models.ArticleQuery) (*models.ArticleList, error) {
	q, err := NormalizeQuery(q)
	if err != nil {
		return nil, err
	}

	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return models.NewArticleList(items, total, q), nil
}

// Update applies the present fields of p. Publishing a draft stamps
// publishedAt; moving to draft always clears it.
func (s *articleService) Update(ctx context.Context, id string, p *models.ArticlePatch) (*models.Article, error) {
	if err := validation.ValidateArticlePatch(p).Err(); err != nil {
		return nil, err
	}

	stored, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load article: %w", err)
	}
	if stored == nil {
		return nil, models.ErrNotFound
	}

	set := patch.Fields(p)
	ts := now()
	set["updatedAt"] = ts

	if p.Status != nil {
		switch *p.Status {
		case models.StatusPublished:
			if stored.Status != models.StatusPublished {
				set["publishedAt"] = ts
			}
		case models.StatusDraft:
			set["publishedAt"] = (*time.Time)(nil)
		}
	}

	matched, err := s.repo.Update(ctx, id, set)
	if err != nil {
		return nil, fmt.Errorf("failed to update article: %w", err)
	}
	if !matched {
		return nil, models.ErrNotFound
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload article: %w", err)
	}
	if updated == nil {
		return nil, models.ErrNotFound
	}

	metrics.RecordArticleWrite(metrics.OpUpdate)

	s.log.Info().
		Str("article_id", id).
		Strs("fields", patch.Keys(set)).
		Msg("Article updated")

	return updated, nil
}

func (s *articleService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	if !deleted {
		return models.ErrNotFound
	}

	metrics.RecordArticleWrite(metrics.OpDelete)
	s.refreshTotal(ctx)

	s.log.Info().Str("article_id", id).Msg("Article deleted")
	return nil
}

func (s *articleService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *articleService) refreshTotal(ctx context.Context) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to refresh article count")
		return
	}
	metrics.UpdateArticlesTotal(count)
}

// NormalizeQuery fills list defaults and clamps the page size. An unknown
// sort field or a negative skip is a validation error.
func NormalizeQuery(q models.ArticleQuery) (models.ArticleQuery, error) {
	var errs validation.Errors

	if q.Limit <= 0 {
		q.Limit = models.DefaultListLimit
	}
	if q.Limit > models.MaxListLimit {
		q.Limit = models.MaxListLimit
	}
	if q.Skip < 0 {
		errs = append(errs, validation.ValidationError{Field: "skip", Message: "skip cannot be negative", Value: q.Skip})
	}
	if q.SortBy == "" {
		q.SortBy = models.SortByUpdatedAt
	} else if !models.ValidSortFields[q.SortBy] {
		errs = append(errs, validation.ValidationError{Field: "sortBy", Message: "invalid sortBy", Value: q.SortBy})
	}
	if q.Filter.Status != "" && !models.ValidStatuses[q.Filter.Status] {
		errs = append(errs, validation.ValidationError{Field: "status", Message: "invalid status", Value: string(q.Filter.Status)})
	}

	return q, errs.Err()
}
