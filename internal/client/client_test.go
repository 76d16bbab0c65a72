package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/breakthrough-cafe/cafe-cms/internal/api"
	"github.com/breakthrough-cafe/cafe-cms/internal/bus"
	"github.com/breakthrough-cafe/cafe-cms/internal/client"
	"github.com/breakthrough-cafe/cafe-cms/internal/config"
	"github.com/breakthrough-cafe/cafe-cms/internal/mirror"
	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/breakthrough-cafe/cafe-cms/internal/repository"
	"github.com/breakthrough-cafe/cafe-cms/internal/service"
	"github.com/breakthrough-cafe/cafe-cms/internal/swr"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	services := service.NewServices(repository.NewMemory(), zerolog.Nop())
	cfg := &config.Config{Server: config.ServerConfig{RequestTimeout: 5 * time.Second, APIToken: token}}
	srv := httptest.NewServer(api.NewRouter(services, cfg, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(srv *httptest.Server, b *bus.Bus, token string) *client.Client {
	return client.New(client.Options{
		BaseURL: srv.URL,
		Session: client.Session{Language: "en", Token: token},
		Bus:     b,
	}, zerolog.Nop())
}

func articleInput(title string, status models.ArticleStatus) *models.ArticleInput {
	return &models.ArticleInput{
		Title:    models.LocalizedText{Zh: title, En: title},
		Excerpt:  models.LocalizedText{Zh: "摘要", En: "Excerpt"},
		Content:  models.LocalizedText{Zh: "内容", En: "Content"},
		ReadTime: models.LocalizedText{Zh: "4 分钟", En: "4 min"},
		Category: "coffee",
		Author:   "Barista",
		Status:   status,
	}
}

func TestClientCRUD(t *testing.T) {
	srv := newServer(t, "")
	c := newClient(srv, nil, "")
	ctx := context.Background()

	created, err := c.CreateArticle(ctx, articleInput("A", models.StatusDraft))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	title := models.LocalizedText{Zh: "B", En: "A"}
	updated, err := c.UpdateArticle(ctx, created.ID, &models.ArticlePatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, "Excerpt", updated.Excerpt.En)

	got, err := c.GetArticle(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Views)

	list, err := c.ListArticles(ctx, client.ListOptions{Category: "coffee", Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, 5, list.Limit)

	require.NoError(t, c.DeleteArticle(ctx, created.ID))

	_, err = c.GetArticle(ctx, created.ID)
	assert.True(t, client.IsNotFound(err))
}

func TestClientCategories(t *testing.T) {
	srv := newServer(t, "")
	c := newClient(srv, nil, "")
	ctx := context.Background()

	in := &models.CategoryInput{
		Slug:        "coffee",
		Title:       models.LocalizedText{Zh: "咖啡", En: "Coffee"},
		Description: models.LocalizedText{Zh: "咖啡", En: "Coffee"},
	}
	_, err := c.CreateCategory(ctx, in)
	require.NoError(t, err)

	_, err = c.CreateCategory(ctx, in)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "slug already exists", apiErr.Message)

	categories, err := c.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Coffee", c.Session().Text(categories[0].Title))
}

func TestWritesPublishOnlyOnSuccess(t *testing.T) {
	srv := newServer(t, "")
	b := bus.New(zerolog.Nop())
	c := newClient(srv, b, "")
	ctx := context.Background()

	var articles, categories int
	b.Subscribe(bus.TopicArticles, func(bus.Topic) { articles++ })
	b.Subscribe(bus.TopicCategories, func(bus.Topic) { categories++ })

	created, err := c.CreateArticle(ctx, articleInput("A", models.StatusPublished))
	require.NoError(t, err)
	assert.Equal(t, 1, articles)

	// Failed writes do not signal
	bad := articleInput("A", models.StatusDraft)
	bad.Title.En = ""
	_, err = c.CreateArticle(ctx, bad)
	require.Error(t, err)
	require.Error(t, c.DeleteArticle(ctx, "00000000-0000-0000-0000-000000000000"))
	assert.Equal(t, 1, articles)

	require.NoError(t, c.DeleteArticle(ctx, created.ID))
	assert.Equal(t, 2, articles)
	assert.Zero(t, categories)
}

func TestBearerToken(t *testing.T) {
	srv := newServer(t, "s3cret")
	ctx := context.Background()

	_, err := newClient(srv, nil, "").CreateArticle(ctx, articleInput("A", models.StatusDraft))
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	_, err = newClient(srv, nil, "s3cret").CreateArticle(ctx, articleInput("A", models.StatusDraft))
	assert.NoError(t, err)
}

func TestSubscribedListReflectsWrite(t *testing.T) {
	srv := newServer(t, "")
	b := bus.New(zerolog.Nop())
	c := newClient(srv, b, "")
	cache := swr.New(swr.Options{DedupWindow: time.Minute, Bus: b}, zerolog.Nop())
	defer cache.Close()
	hooks := client.NewHooks(c, cache)
	ctx := context.Background()

	totals := make(chan int64, 16)
	unsubscribe := hooks.WatchArticles(client.ListOptions{}, func(list *models.ArticleList, st swr.State) {
		if list != nil {
			totals <- list.Total
		}
	})
	defer unsubscribe()

	waitTotal := func(want int64) {
		t.Helper()
		timeout := time.After(2 * time.Second)
		for {
			select {
			case got := <-totals:
				if got == want {
					return
				}
			case <-timeout:
				t.Fatalf("list never reached total %d", want)
			}
		}
	}

	waitTotal(0)

	// The dedup window is a minute; the write must still show up
	created, err := c.CreateArticle(ctx, articleInput("A", models.StatusPublished))
	require.NoError(t, err)
	waitTotal(1)

	require.NoError(t, c.DeleteArticle(ctx, created.ID))
	waitTotal(0)
}

func TestHooksArticlesDedupAndInvalidate(t *testing.T) {
	srv := newServer(t, "")
	b := bus.New(zerolog.Nop())
	c := newClient(srv, b, "")
	cache := swr.New(swr.Options{DedupWindow: time.Minute, Bus: b}, zerolog.Nop())
	defer cache.Close()
	hooks := client.NewHooks(c, cache)
	ctx := context.Background()

	list, _, err := hooks.Articles(ctx, client.ListOptions{Status: models.StatusPublished})
	require.NoError(t, err)
	assert.Zero(t, list.Total)

	// Bypass the client so no signal is published: the cached page stands
	other := newClient(srv, nil, "")
	_, err = other.CreateArticle(ctx, articleInput("A", models.StatusPublished))
	require.NoError(t, err)

	list, _, err = hooks.Articles(ctx, client.ListOptions{Status: models.StatusPublished})
	require.NoError(t, err)
	assert.Zero(t, list.Total)

	// A write through the signalling client marks it stale
	_, err = c.CreateArticle(ctx, articleInput("B", models.StatusPublished))
	require.NoError(t, err)

	list, _, err = hooks.Articles(ctx, client.ListOptions{Status: models.StatusPublished})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total)
}

func TestHooksFallBackToMirror(t *testing.T) {
	srv := newServer(t, "")
	m := mirror.NewMemory()
	ctx := context.Background()

	seed := newClient(srv, nil, "")
	_, err := seed.CreateCategory(ctx, &models.CategoryInput{
		Slug:        "tea",
		Title:       models.LocalizedText{Zh: "茶", En: "Tea"},
		Description: models.LocalizedText{Zh: "茶", En: "Tea"},
	})
	require.NoError(t, err)

	warm := swr.New(swr.Options{Mirror: m}, zerolog.Nop())
	_, _, err = client.NewHooks(seed, warm).Categories(ctx)
	require.NoError(t, err)
	require.NoError(t, warm.Close())

	// Server goes away; a fresh cache still has the mirrored list
	srv.Close()
	cold := swr.New(swr.Options{Mirror: m}, zerolog.Nop())
	defer cold.Close()

	categories, st, err := client.NewHooks(seed, cold).Categories(ctx)
	require.Error(t, err)
	assert.True(t, st.FromMirror)
	require.Len(t, categories, 1)
	assert.Equal(t, "tea", categories[0].Slug)
}

func TestListOptionsValues(t *testing.T) {
	featured := true
	v := client.ListOptions{
		Category:   "coffee",
		IsFeatured: &featured,
		Status:     models.StatusPublished,
		Limit:      20,
		Skip:       40,
		SortBy:     models.SortByViews,
		SortOrder:  "asc",
	}.Values()

	assert.Equal(t, "category=coffee&isFeatured=true&limit=20&skip=40&sortBy=views&sortOrder=asc&status=published", v.Encode())
	assert.Empty(t, client.ListOptions{}.Values())
}
