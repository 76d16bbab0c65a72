package models

import (
	"time"
)

// ArticleStatus controls public visibility of an article
type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "draft"
	StatusPublished ArticleStatus = "published"
)

// ValidStatuses defines allowed article statuses
var ValidStatuses = map[ArticleStatus]bool{
	StatusDraft:     true,
	StatusPublished: true,
}

// LocalizedText is a bilingual text value
type LocalizedText struct {
	Zh string `json:"zh" bson:"zh"`
	En string `json:"en" bson:"en"`
}

// In returns the text for lang, falling back to the other language when empty
func (t LocalizedText) In(lang string) string {
	if lang == "en" {
		if t.En != "" {
			return t.En
		}
		return t.Zh
	}
	if t.Zh != "" {
		return t.Zh
	}
	return t.En
}

// Article represents an article document
type Article struct {
	ID          string        `json:"id" bson:"-"`
	Title       LocalizedText `json:"title" bson:"title"`
	Excerpt     LocalizedText `json:"excerpt" bson:"excerpt"`
	Content     LocalizedText `json:"content" bson:"content"`
	ReadTime    LocalizedText `json:"readTime" bson:"readTime"`
	Category    string        `json:"category" bson:"category"`
	Tags        []string      `json:"tags" bson:"tags"`
	IsFeatured  bool          `json:"isFeatured" bson:"isFeatured"`
	Author      string        `json:"author" bson:"author"`
	Status      ArticleStatus `json:"status" bson:"status"`
	PublishedAt *time.Time    `json:"publishedAt" bson:"publishedAt"`
	Views       int64         `json:"views" bson:"views"`
	CoverImage  string        `json:"coverImage,omitempty" bson:"coverImage,omitempty"`
	CreatedAt   time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// ArticleInput is the create request body: the full article minus server-assigned fields
type ArticleInput struct {
	Title      LocalizedText `json:"title"`
	Excerpt    LocalizedText `json:"excerpt"`
	Content    LocalizedText `json:"content"`
	ReadTime   LocalizedText `json:"readTime"`
	Category   string        `json:"category"`
	Tags       []string      `json:"tags"`
	IsFeatured bool          `json:"isFeatured"`
	Author     string        `json:"author"`
	Status     ArticleStatus `json:"status"`
	CoverImage string        `json:"coverImage,omitempty"`
}

// ArticlePatch is a partial update; nil fields are left untouched.
// JSON names double as the stored field names.
type ArticlePatch struct {
	Title      *LocalizedText `json:"title,omitempty"`
	Excerpt    *LocalizedText `json:"excerpt,omitempty"`
	Content    *LocalizedText `json:"content,omitempty"`
	ReadTime   *LocalizedText `json:"readTime,omitempty"`
	Category   *string        `json:"category,omitempty"`
	Tags       *[]string      `json:"tags,omitempty"`
	IsFeatured *bool          `json:"isFeatured,omitempty"`
	Author     *string        `json:"author,omitempty"`
	Status     *ArticleStatus `json:"status,omitempty"`
	CoverImage *string        `json:"coverImage,omitempty"`
}

// Sortable article fields
const (
	SortByUpdatedAt   = "updatedAt"
	SortByCreatedAt   = "createdAt"
	SortByPublishedAt = "publishedAt"
	SortByViews       = "views"
	SortByTitle       = "title"
)

// ValidSortFields defines the fields a list can be sorted by
var ValidSortFields = map[string]bool{
	SortByUpdatedAt:   true,
	SortByCreatedAt:   true,
	SortByPublishedAt: true,
	SortByViews:       true,
	SortByTitle:       true,
}

const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// ArticleFilter holds exact-match list filters; zero values mean "any"
type ArticleFilter struct {
	Category   string
	IsFeatured *bool
	Status     ArticleStatus
}

// ArticleQuery is a list request
type ArticleQuery struct {
	Filter   ArticleFilter
	Limit    int
	Skip     int
	SortBy   string
	SortDesc bool
}

// ArticleList is a page of articles
type ArticleList struct {
	Items   []*Article `json:"items"`
	Total   int64      `json:"total"`
	Page    int        `json:"page"`
	Limit   int        `json:"limit"`
	HasMore bool       `json:"hasMore"`
}

// NewArticleList builds a page and its paging metadata
func NewArticleList(items []*Article, total int64, q ArticleQuery) *ArticleList {
	if items == nil {
		items = []*Article{}
	}
	page := 1
	if q.Limit > 0 {
		page = q.Skip/q.Limit + 1
	}
	return &ArticleList{
		Items:   items,
		Total:   total,
		Page:    page,
		Limit:   q.Limit,
		HasMore: int64(q.Skip+q.Limit) < total,
	}
}
