package repository

import (
	"sort"
	"time"

	"github.com/breakthrough-cafe/cafe-cms/internal/models"
)

// sortArticles orders items in place the way the database drivers do:
// a null publishedAt sorts before any timestamp, ties break on id.
func sortArticles(items []*models.Article, sortBy string, desc bool) {
	cmp := func(a, b *models.Article) int {
		switch sortBy {
		case models.SortByCreatedAt:
			return compareTime(a.CreatedAt, b.CreatedAt)
		case models.SortByPublishedAt:
			switch {
			case a.PublishedAt == nil && b.PublishedAt == nil:
				return 0
			case a.PublishedAt == nil:
				return -1
			case b.PublishedAt == nil:
				return 1
			}
			return compareTime(*a.PublishedAt, *b.PublishedAt)
		case models.SortByViews:
			return compareInt(a.Views, b.Views)
		case models.SortByTitle:
			return compareString(a.Title.En, b.Title.En)
		default:
			return compareTime(a.UpdatedAt, b.UpdatedAt)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		c := cmp(items[i], items[j])
		if c == 0 {
			c = compareString(items[i].ID, items[j].ID)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// matchesFilter applies exact-match list filters
func matchesFilter(a *models.Article, f models.ArticleFilter) bool {
	if f.Category != "" && a.Category != f.Category {
		return false
	}
	if f.IsFeatured != nil && a.IsFeatured != *f.IsFeatured {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}
