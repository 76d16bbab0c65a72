package benchmark

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/breakthrough-cafe/cafe-cms/internal/patch"
	"github.com/breakthrough-cafe/cafe-cms/internal/repository"
	"github.com/breakthrough-cafe/cafe-cms/internal/service"
	"github.com/breakthrough-cafe/cafe-cms/internal/swr"
	"github.com/rs/zerolog"
)

func seedArticles(b *testing.B, n int) *repository.Repositories {
	b.Helper()
	repos := repository.NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()
	categories := []string{"coffee", "tea", "books"}

	for i := 0; i < n; i++ {
		err := repos.Article.Create(ctx, &models.Article{
			Title:     models.LocalizedText{Zh: fmt.Sprintf("文章 %d", i), En: fmt.Sprintf("Article %d", i)},
			Excerpt:   models.LocalizedText{Zh: "摘要", En: "Excerpt"},
			Content:   models.LocalizedText{Zh: "内容", En: "Content"},
			ReadTime:  models.LocalizedText{Zh: "5 分钟", En: "5 min"},
			Category:  categories[i%len(categories)],
			Tags:      []string{"bench"},
			Author:    "Bench",
			Status:    models.StatusPublished,
			Views:     int64(i),
			CreatedAt: now.Add(time.Duration(i) * time.Second),
			UpdatedAt: now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			b.Fatalf("seed failed: %v", err)
		}
	}
	return repos
}

// BenchmarkPatchFields benchmarks extracting present fields from a partial update
func BenchmarkPatchFields(b *testing.B) {
	title := models.LocalizedText{Zh: "新标题", En: "New title"}
	featured := true
	p := &models.ArticlePatch{Title: &title, IsFeatured: &featured}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if set := patch.Fields(p); len(set) != 2 {
			b.Fatalf("expected 2 fields, got %d", len(set))
		}
	}
}

// BenchmarkPatchMerge benchmarks applying a field set onto a stored article
func BenchmarkPatchMerge(b *testing.B) {
	set := map[string]any{
		"title":      models.LocalizedText{Zh: "新标题", En: "New title"},
		"isFeatured": true,
		"updatedAt":  time.Now().UTC(),
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		a := &models.Article{Author: "Bench", Status: models.StatusDraft}
		if err := patch.Merge(a, set); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMemoryList benchmarks a filtered, sorted page over 1000 articles
func BenchmarkMemoryList(b *testing.B) {
	repos := seedArticles(b, 1000)
	ctx := context.Background()
	q := models.ArticleQuery{
		Filter:   models.ArticleFilter{Category: "coffee"},
		Limit:    20,
		SortBy:   models.SortByViews,
		SortDesc: true,
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, _, err := repos.Article.List(ctx, q); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkNormalizeQuery benchmarks list query defaulting and validation
func BenchmarkNormalizeQuery(b *testing.B) {
	q := models.ArticleQuery{Limit: 500, SortBy: models.SortByTitle}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := service.NormalizeQuery(q); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkExportNDJSON benchmarks streaming 1000 articles as NDJSON
func BenchmarkExportNDJSON(b *testing.B) {
	repos := seedArticles(b, 1000)
	services := service.NewServices(repos, zerolog.Nop())
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		n, err := services.Export.StreamArticles(ctx, io.Discard, service.FormatNDJSON, models.ArticleFilter{})
		if err != nil || n != 1000 {
			b.Fatalf("expected 1000 rows, got %d: %v", n, err)
		}
	}
}

// BenchmarkCacheGetWithinDedup benchmarks cached reads that never reach the fetcher
func BenchmarkCacheGetWithinDedup(b *testing.B) {
	cache := swr.New(swr.Options{DedupWindow: time.Hour}, zerolog.Nop())
	defer cache.Close()

	body := []byte(`{"items":[],"total":0}`)
	r := swr.Resource{
		Key:   swr.Key("/api/articles", nil),
		Topic: "articles",
		Fetch: func(ctx context.Context) ([]byte, error) { return body, nil },
	}
	ctx := context.Background()
	if _, err := cache.Get(ctx, r); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := cache.Get(ctx, r); err != nil {
			b.Fatal(err)
		}
	}
}
