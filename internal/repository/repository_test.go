package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/breakthrough-cafe/cafe-cms/internal/config"
	"github.com/breakthrough-cafe/cafe-cms/internal/database"
	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/breakthrough-cafe/cafe-cms/internal/repository"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

// Store-backed runs are opt-in:
//   MONGO_TEST_URI=mongodb://localhost:27017 go test ./internal/repository/...
//   POSTGRES_TEST_DSN="host=localhost user=postgres password=postgres dbname=cafe_test sslmode=disable" go test ./internal/repository/...

func TestMemoryRepositories(t *testing.T) {
	runContract(t, func(t *testing.T) *repository.Repositories {
		return repository.NewMemory()
	})
}

func TestMongoRepositories(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	runContract(t, func(t *testing.T) *repository.Repositories {
		ctx := context.Background()
		m, err := database.NewMongo(ctx, &config.MongoConfig{
			URI:            uri,
			Database:       "cafe_test_" + time.Now().Format("150405.000000"),
			ConnectTimeout: 5 * time.Second,
			MaxPoolSize:    5,
		}, zerolog.Nop())
		if err != nil {
			t.Fatalf("NewMongo failed: %v", err)
		}
		if err := m.EnsureIndexes(ctx); err != nil {
			t.Fatalf("EnsureIndexes failed: %v", err)
		}
		t.Cleanup(func() {
			m.DB.Drop(context.Background())
			m.Close(context.Background())
		})
		return repository.NewMongo(m)
	})
}

func TestPostgresRepositories(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	runContract(t, func(t *testing.T) *repository.Repositories {
		sqlDB, err := sql.Open("postgres", dsn)
		if err != nil {
			t.Fatalf("open failed: %v", err)
		}
		db := database.Wrap(sqlDB, zerolog.Nop())
		if err := db.RunMigrations(); err != nil {
			t.Fatalf("RunMigrations failed: %v", err)
		}
		if err := db.Reset(context.Background()); err != nil {
			t.Fatalf("Reset failed: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		return repository.NewPostgres(db)
	})
}

func TestMemoryArticleRepo_ReadsAreCopies(t *testing.T) {
	repo := repository.NewMemoryArticleRepo()
	ctx := context.Background()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	a := newArticle("Copy", models.StatusPublished, ts)
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	// The caller's value must not alias the stored one either
	a.Tags[0] = "mutated"

	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	got.Tags[1] = "mutated"
	*got.PublishedAt = ts.Add(time.Hour)

	again, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "a", "b"}, again.Tags); diff != "" {
		t.Errorf("Stored tags changed (-want +got):\n%s", diff)
	}
	if !again.PublishedAt.Equal(ts) {
		t.Errorf("Stored publishedAt changed to %v", again.PublishedAt)
	}
}

func newArticle(title string, status models.ArticleStatus, updated time.Time) *models.Article {
	a := &models.Article{
		Title:     models.LocalizedText{Zh: title, En: title},
		Excerpt:   models.LocalizedText{Zh: "摘要", En: "excerpt"},
		Content:   models.LocalizedText{Zh: "内容", En: "content"},
		ReadTime:  models.LocalizedText{Zh: "3 分钟", En: "3 min"},
		Category:  "guides",
		Tags:      []string{"b", "a", "b"},
		Author:    "cafe",
		Status:    status,
		CreatedAt: updated,
		UpdatedAt: updated,
	}
	if status == models.StatusPublished {
		p := updated
		a.PublishedAt = &p
	}
	return a
}

func runContract(t *testing.T, open func(t *testing.T) *repository.Repositories) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("create and get", func(t *testing.T) {
		repos := open(t)
		a := newArticle("A", models.StatusPublished, base)
		if err := repos.Article.Create(ctx, a); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if a.ID == "" {
			t.Fatal("Create should assign an id")
		}

		got, err := repos.Article.GetByID(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if got == nil {
			t.Fatal("Article should be found")
		}
		if diff := cmp.Diff(a, got); diff != "" {
			t.Errorf("stored article mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		repos := open(t)
		if _, err := repos.Article.GetByID(ctx, "not-an-id"); !errors.Is(err, models.ErrInvalidID) {
			t.Errorf("Expected ErrInvalidID from GetByID, got %v", err)
		}
		if _, err := repos.Article.Update(ctx, "not-an-id", map[string]any{"author": "x"}); !errors.Is(err, models.ErrInvalidID) {
			t.Errorf("Expected ErrInvalidID from Update, got %v", err)
		}
		if _, err := repos.Article.Delete(ctx, "not-an-id"); !errors.Is(err, models.ErrInvalidID) {
			t.Errorf("Expected ErrInvalidID from Delete, got %v", err)
		}
	})

	t.Run("update sets only given keys", func(t *testing.T) {
		repos := open(t)
		a := newArticle("A", models.StatusPublished, base)
		repos.Article.Create(ctx, a)

		stamp := base.Add(time.Hour)
		matched, err := repos.Article.Update(ctx, a.ID, map[string]any{
			"title":     models.LocalizedText{Zh: "B", En: "A"},
			"updatedAt": stamp,
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if !matched {
			t.Fatal("Update should match the article")
		}

		got, _ := repos.Article.GetByID(ctx, a.ID)
		want := *a
		want.Title = models.LocalizedText{Zh: "B", En: "A"}
		want.UpdatedAt = stamp
		if diff := cmp.Diff(&want, got); diff != "" {
			t.Errorf("updated article mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("identical update still matches", func(t *testing.T) {
		repos := open(t)
		a := newArticle("A", models.StatusDraft, base)
		repos.Article.Create(ctx, a)

		matched, err := repos.Article.Update(ctx, a.ID, map[string]any{"author": a.Author})
		if err != nil || !matched {
			t.Fatalf("Expected matched no-op update, got matched=%v err=%v", matched, err)
		}
	})

	t.Run("update missing document", func(t *testing.T) {
		repos := open(t)
		a := newArticle("A", models.StatusDraft, base)
		repos.Article.Create(ctx, a)
		repos.Article.Delete(ctx, a.ID)

		matched, err := repos.Article.Update(ctx, a.ID, map[string]any{"author": "x"})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if matched {
			t.Error("Update should not match a deleted article")
		}
	})

	t.Run("publishedAt can be cleared", func(t *testing.T) {
		repos := open(t)
		a := newArticle("A", models.StatusPublished, base)
		repos.Article.Create(ctx, a)

		repos.Article.Update(ctx, a.ID, map[string]any{
			"status":      models.StatusDraft,
			"publishedAt": (*time.Time)(nil),
		})
		got, _ := repos.Article.GetByID(ctx, a.ID)
		if got.PublishedAt != nil {
			t.Errorf("Expected publishedAt null, got %v", got.PublishedAt)
		}
		if got.Status != models.StatusDraft {
			t.Errorf("Expected draft, got %s", got.Status)
		}
	})

	t.Run("increment views", func(t *testing.T) {
		repos := open(t)
		a := newArticle("A", models.StatusPublished, base)
		repos.Article.Create(ctx, a)

		for i := 1; i <= 3; i++ {
			got, err := repos.Article.IncrementViews(ctx, a.ID)
			if err != nil {
				t.Fatalf("IncrementViews failed: %v", err)
			}
			if got.Views != int64(i) {
				t.Errorf("Expected %d views, got %d", i, got.Views)
			}
		}
	})

	t.Run("list filters and paging", func(t *testing.T) {
		repos := open(t)
		for i, status := range []models.ArticleStatus{
			models.StatusPublished, models.StatusDraft, models.StatusPublished, models.StatusDraft, models.StatusPublished,
		} {
			a := newArticle(string(rune('A'+i)), status, base.Add(time.Duration(i)*time.Minute))
			a.IsFeatured = i == 0
			repos.Article.Create(ctx, a)
		}

		all, total, err := repos.Article.List(ctx, models.ArticleQuery{Limit: 10, SortDesc: true})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if total != 5 || len(all) != 5 {
			t.Errorf("Expected 5 of 5 with no status filter, got %d of %d", len(all), total)
		}
		if all[0].Title.En != "E" {
			t.Errorf("Expected newest first, got %s", all[0].Title.En)
		}

		published, total, _ := repos.Article.List(ctx, models.ArticleQuery{
			Filter: models.ArticleFilter{Status: models.StatusPublished},
			Limit:  10,
		})
		if total != 3 {
			t.Errorf("Expected 3 published, got %d", total)
		}
		for _, a := range published {
			if a.Status != models.StatusPublished {
				t.Errorf("Draft leaked into published list: %s", a.ID)
			}
		}

		featured := true
		items, total, _ := repos.Article.List(ctx, models.ArticleQuery{
			Filter: models.ArticleFilter{IsFeatured: &featured},
			Limit:  10,
		})
		if total != 1 || len(items) != 1 || items[0].Title.En != "A" {
			t.Errorf("Expected only featured article A, got %d items", total)
		}

		page, total, _ := repos.Article.List(ctx, models.ArticleQuery{Limit: 2, Skip: 4, SortBy: models.SortByTitle})
		if total != 5 || len(page) != 1 || page[0].Title.En != "E" {
			t.Errorf("Expected last page with E, got %d items of %d", len(page), total)
		}
	})

	t.Run("stream all in creation order", func(t *testing.T) {
		repos := open(t)
		for i := 0; i < 3; i++ {
			repos.Article.Create(ctx, newArticle(string(rune('C'-i)), models.StatusDraft, base.Add(time.Duration(i)*time.Minute)))
		}

		var titles []string
		err := repos.Article.StreamAll(ctx, models.ArticleFilter{}, func(a *models.Article) error {
			titles = append(titles, a.Title.En)
			return nil
		})
		if err != nil {
			t.Fatalf("StreamAll failed: %v", err)
		}
		if diff := cmp.Diff([]string{"C", "B", "A"}, titles); diff != "" {
			t.Errorf("stream order mismatch (-want +got):\n%s", diff)
		}

		count, _ := repos.Article.Count(ctx)
		if count != 3 {
			t.Errorf("Expected count 3, got %d", count)
		}
	})

	t.Run("categories", func(t *testing.T) {
		repos := open(t)
		for _, c := range []*models.Category{
			{Slug: "tools", Order: 2, CreatedAt: base, UpdatedAt: base},
			{Slug: "guides", Order: 1, CreatedAt: base, UpdatedAt: base},
			{Slug: "ai", Order: 2, CreatedAt: base, UpdatedAt: base},
		} {
			if err := repos.Category.Create(ctx, c); err != nil {
				t.Fatalf("Create category failed: %v", err)
			}
		}

		err := repos.Category.Create(ctx, &models.Category{Slug: "ai"})
		if !errors.Is(err, models.ErrDuplicateSlug) {
			t.Errorf("Expected ErrDuplicateSlug, got %v", err)
		}

		list, err := repos.Category.List(ctx)
		if err != nil {
			t.Fatalf("List categories failed: %v", err)
		}
		var slugs []string
		for _, c := range list {
			slugs = append(slugs, c.Slug)
		}
		if diff := cmp.Diff([]string{"guides", "ai", "tools"}, slugs); diff != "" {
			t.Errorf("category order mismatch (-want +got):\n%s", diff)
		}

		exists, _ := repos.Category.SlugExists(ctx, "guides")
		if !exists {
			t.Error("Slug should exist")
		}
	})
}
