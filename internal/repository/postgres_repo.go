package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/breakthrough-cafe/cafe-cms/internal/database"
	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures
const uniqueViolation = "23505"

// NewPostgres creates repositories backed by PostgreSQL JSONB document tables
func NewPostgres(db *database.DB) *Repositories {
	return &Repositories{
		Article:  NewPostgresArticleRepo(db),
		Category: NewPostgresCategoryRepo(db),
		Health:   db,
	}
}

// postgresArticleRepo stores each article as one JSONB document
type postgresArticleRepo struct {
	db *database.DB
}

// NewPostgresArticleRepo creates a new article repository
func NewPostgresArticleRepo(db *database.DB) ArticleRepository {
	return &postgresArticleRepo{db: db}
}

// Create inserts a new article and assigns its id
func (r *postgresArticleRepo) Create(ctx context.Context, article *models.Article) error {
	id := uuid.New()
	article.ID = id.String()

	doc, err := json.Marshal(article)
	if err != nil {
		return fmt.Errorf("failed to encode article: %w", err)
	}

	// lib/pq sends []byte as bytea, so documents go over the wire as text
	query := `INSERT INTO articles (id, doc, created_at) VALUES ($1, $2::jsonb, $3)`
	_, err = r.db.ExecContext(ctx, query, id, string(doc), article.CreatedAt)
	return err
}

// GetByID retrieves an article by ID
func (r *postgresArticleRepo) GetByID(ctx context.Context, id string) (*models.Article, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, models.ErrInvalidID
	}

	var doc []byte
	err = r.db.QueryRowContext(ctx, `SELECT doc FROM articles WHERE id = $1`, uid).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeArticle(uid, doc)
}

// List returns one page of matching articles and the total match count
func (r *postgresArticleRepo) List(ctx context.Context, q models.ArticleQuery) ([]*models.Article, int64, error) {
	where, args := postgresWhere(q.Filter)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir, nulls := "ASC", "NULLS FIRST"
	if q.SortDesc {
		dir, nulls = "DESC", "NULLS LAST"
	}
	query := fmt.Sprintf("SELECT id, doc FROM articles%s ORDER BY %s %s %s, id %s",
		where, postgresSortExpr(q.SortBy), dir, nulls, dir)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	args = append(args, q.Skip)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]*models.Article, 0)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, article)
	}
	return items, total, rows.Err()
}

// Update merges set into the stored document with the JSONB || operator,
// replacing top-level keys only
func (r *postgresArticleRepo) Update(ctx context.Context, id string, set map[string]any) (bool, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return false, models.ErrInvalidID
	}

	patchDoc, err := json.Marshal(set)
	if err != nil {
		return false, fmt.Errorf("failed to encode update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `UPDATE articles SET doc = doc || $2::jsonb WHERE id = $1`, uid, string(patchDoc))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IncrementViews adds one view in a single statement and returns the result
func (r *postgresArticleRepo) IncrementViews(ctx context.Context, id string) (*models.Article, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, models.ErrInvalidID
	}

	query := `
		UPDATE articles
		SET doc = jsonb_set(doc, '{views}', to_jsonb(COALESCE((doc->>'views')::bigint, 0) + 1))
		WHERE id = $1
		RETURNING doc
	`
	var doc []byte
	err = r.db.QueryRowContext(ctx, query, uid).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeArticle(uid, doc)
}

// Delete removes an article
func (r *postgresArticleRepo) Delete(ctx context.Context, id string) (bool, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return false, models.ErrInvalidID
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, uid)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Count returns the total number of articles
func (r *postgresArticleRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&count)
	return count, err
}

// StreamAll streams matching articles for export
func (r *postgresArticleRepo) StreamAll(ctx context.Context, filter models.ArticleFilter, callback func(*models.Article) error) error {
	where, args := postgresWhere(filter)
	rows, err := r.db.QueryContext(ctx, "SELECT id, doc FROM articles"+where+" ORDER BY created_at, id", args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return err
		}
		if err := callback(article); err != nil {
			return err
		}
	}
	return rows.Err()
}

func postgresWhere(f models.ArticleFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("doc->>'category' = $%d", len(args)))
	}
	if f.IsFeatured != nil {
		args = append(args, *f.IsFeatured)
		conds = append(conds, fmt.Sprintf("COALESCE((doc->>'isFeatured')::boolean, false) = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("doc->>'status' = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// postgresSortExpr maps a validated sort field to a SQL expression.
// Unknown fields fall back to updatedAt, so user input never reaches the SQL.
func postgresSortExpr(sortBy string) string {
	switch sortBy {
	case models.SortByCreatedAt:
		return "(doc->>'createdAt')::timestamptz"
	case models.SortByPublishedAt:
		return "(doc->>'publishedAt')::timestamptz"
	case models.SortByViews:
		return "(doc->>'views')::bigint"
	case models.SortByTitle:
		return "doc->'title'->>'en'"
	default:
		return "(doc->>'updatedAt')::timestamptz"
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*models.Article, error) {
	var id uuid.UUID
	var doc []byte
	if err := row.Scan(&id, &doc); err != nil {
		return nil, err
	}
	return decodeArticle(id, doc)
}

func decodeArticle(id uuid.UUID, doc []byte) (*models.Article, error) {
	var article models.Article
	if err := json.Unmarshal(doc, &article); err != nil {
		return nil, fmt.Errorf("failed to decode article %s: %w", id, err)
	}
	article.ID = id.String()
	return &article, nil
}

// postgresCategoryRepo stores each category as one JSONB document keyed by slug
type postgresCategoryRepo struct {
	db *database.DB
}

// NewPostgresCategoryRepo creates a new category repository
func NewPostgresCategoryRepo(db *database.DB) CategoryRepository {
	return &postgresCategoryRepo{db: db}
}

// Create inserts a category; the slug primary key reports duplicates
func (r *postgresCategoryRepo) Create(ctx context.Context, category *models.Category) error {
	doc, err := json.Marshal(category)
	if err != nil {
		return fmt.Errorf("failed to encode category: %w", err)
	}

	createdAt := category.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO categories (slug, doc, created_at) VALUES ($1, $2::jsonb, $3)`,
		category.Slug, string(doc), createdAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return models.ErrDuplicateSlug
	}
	return err
}

// List returns all categories by order, then slug
func (r *postgresCategoryRepo) List(ctx context.Context) ([]*models.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT doc FROM categories ORDER BY COALESCE((doc->>'order')::int, 0), slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]*models.Category, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var c models.Category
		if err := json.Unmarshal(doc, &c); err != nil {
			return nil, fmt.Errorf("failed to decode category: %w", err)
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

// SlugExists checks if a category with the given slug exists
func (r *postgresCategoryRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM categories WHERE slug = $1)", slug).Scan(&exists)
	return exists, err
}
