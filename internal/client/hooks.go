package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/breakthrough-cafe/cafe-cms/internal/bus"
	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/breakthrough-cafe/cafe-cms/internal/swr"
)

// Hooks serves typed reads through the revalidating cache
type Hooks struct {
	client *Client
	cache  *swr.Cache
}

// NewHooks pairs a client with a cache. The cache should share the client's
// bus so writes made through the client invalidate it.
func NewHooks(c *Client, cache *swr.Cache) *Hooks {
	return &Hooks{client: c, cache: cache}
}

func (h *Hooks) resource(path string, query url.Values, topic bus.Topic) swr.Resource {
	return swr.Resource{
		Key:   swr.Key(path, query),
		Topic: topic,
		Fetch: func(ctx context.Context) ([]byte, error) {
			return h.client.FetchRaw(ctx, path, query)
		},
	}
}

// ArticlesResource is the cache resource for a list query
func (h *Hooks) ArticlesResource(opts ListOptions) swr.Resource {
	return h.resource(ArticlesPath, opts.Values(), bus.TopicArticles)
}

// ArticleResource is the cache resource for one article
func (h *Hooks) ArticleResource(id string) swr.Resource {
	return h.resource(articlePath(id), nil, bus.TopicArticles)
}

// CategoriesResource is the cache resource for the category list
func (h *Hooks) CategoriesResource() swr.Resource {
	return h.resource(CategoriesPath, nil, bus.TopicCategories)
}

// Articles returns a list page, from cache when fresh. On a failed fetch the
// last known page is still returned with the error.
func (h *Hooks) Articles(ctx context.Context, opts ListOptions) (*models.ArticleList, swr.State, error) {
	st, err := h.cache.Get(ctx, h.ArticlesResource(opts))
	list, derr := decodeState[models.ArticleList](st)
	if err == nil {
		err = derr
	}
	return list, st, err
}

// Article returns one article, from cache when fresh
func (h *Hooks) Article(ctx context.Context, id string) (*models.Article, swr.State, error) {
	st, err := h.cache.Get(ctx, h.ArticleResource(id))
	article, derr := decodeState[models.Article](st)
	if err == nil {
		err = derr
	}
	return article, st, err
}

// Categories returns the category list, from cache when fresh
func (h *Hooks) Categories(ctx context.Context) ([]*models.Category, swr.State, error) {
	st, err := h.cache.Get(ctx, h.CategoriesResource())
	resp, derr := decodeState[categoriesResponse](st)
	if err == nil {
		err = derr
	}
	if resp == nil {
		return nil, st, err
	}
	return resp.Categories, st, err
}

// WatchArticles calls fn with each new value of a list query. list is nil
// until some value (cached, mirrored or fetched) exists.
func (h *Hooks) WatchArticles(opts ListOptions, fn func(list *models.ArticleList, st swr.State)) (unsubscribe func()) {
	return h.cache.Subscribe(h.ArticlesResource(opts), func(st swr.State) {
		list, err := decodeState[models.ArticleList](st)
		fn(list, withDecodeErr(st, err))
	})
}

// WatchArticle calls fn with each new value of one article. Every fetch the
// watch triggers counts a view on the server.
func (h *Hooks) WatchArticle(id string, fn func(article *models.Article, st swr.State)) (unsubscribe func()) {
	return h.cache.Subscribe(h.ArticleResource(id), func(st swr.State) {
		article, err := decodeState[models.Article](st)
		fn(article, withDecodeErr(st, err))
	})
}

// WatchCategories calls fn with each new value of the category list
func (h *Hooks) WatchCategories(fn func(categories []*models.Category, st swr.State)) (unsubscribe func()) {
	return h.cache.Subscribe(h.CategoriesResource(), func(st swr.State) {
		resp, err := decodeState[categoriesResponse](st)
		if resp == nil {
			fn(nil, withDecodeErr(st, err))
			return
		}
		fn(resp.Categories, withDecodeErr(st, err))
	})
}

func decodeState[T any](st swr.State) (*T, error) {
	if st.Data == nil {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(st.Data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode cached response: %w", err)
	}
	return &v, nil
}

func withDecodeErr(st swr.State, err error) swr.State {
	if err != nil {
		st.Err = err
	}
	return st
}
