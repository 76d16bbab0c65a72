// Package client is the Go client for the cafe CMS API. Writes publish an
// invalidation signal on the bus once the server has confirmed them; reads
// can go through Hooks for stale-while-revalidate caching.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/breakthrough-cafe/cafe-cms/internal/bus"
	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/rs/zerolog"
)

// API paths
const (
	ArticlesPath   = "/api/articles"
	CategoriesPath = "/api/categories"
)

// maxErrorBody caps how much of an error response is read
const maxErrorBody = 64 << 10

// Session is the per-process language and login state
type Session struct {
	// Language is "zh" or "en"
	Language string
	// Token is sent as a bearer token on every request when set
	Token string
}

// Text picks the session language from t
func (s Session) Text(t models.LocalizedText) string {
	return t.In(s.Language)
}

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Options configures a Client
type Options struct {
	BaseURL    string
	Session    Session
	HTTPClient *http.Client
	// Bus receives an invalidation after every successful write; nil disables it
	Bus *bus.Bus
}

// Client talks to the CMS API
type Client struct {
	baseURL string
	session Session
	http    *http.Client
	bus     *bus.Bus
	log     zerolog.Logger
}

// New creates a client
func New(opts Options, log zerolog.Logger) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		session: opts.Session,
		http:    hc,
		bus:     opts.Bus,
		log:     log.With().Str("component", "client").Logger(),
	}
}

// Session returns the client's session
func (c *Client) Session() Session {
	return c.session
}

// ListOptions are the article list parameters; zero values use server defaults
type ListOptions struct {
	Category   string
	IsFeatured *bool
	Status     models.ArticleStatus
	Limit      int
	Skip       int
	SortBy     string
	// SortOrder is "asc" or "desc"
	SortOrder string
}

// Values encodes o as query parameters
func (o ListOptions) Values() url.Values {
	v := url.Values{}
	if o.Category != "" {
		v.Set("category", o.Category)
	}
	if o.IsFeatured != nil {
		v.Set("isFeatured", strconv.FormatBool(*o.IsFeatured))
	}
	if o.Status != "" {
		v.Set("status", string(o.Status))
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Skip > 0 {
		v.Set("skip", strconv.Itoa(o.Skip))
	}
	if o.SortBy != "" {
		v.Set("sortBy", o.SortBy)
	}
	if o.SortOrder != "" {
		v.Set("sortOrder", o.SortOrder)
	}
	return v
}

// Reads

// FetchRaw performs a GET and returns the body of a 2xx response
func (c *Client) FetchRaw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.send(ctx, http.MethodGet, path, query, nil)
}

// ListArticles handles GET /api/articles
func (c *Client) ListArticles(ctx context.Context, opts ListOptions) (*models.ArticleList, error) {
	var list models.ArticleList
	if err := c.getJSON(ctx, ArticlesPath, opts.Values(), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetArticle fetches one article. The server counts it as a view.
func (c *Client) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	var article models.Article
	if err := c.getJSON(ctx, articlePath(id), nil, &article); err != nil {
		return nil, err
	}
	return &article, nil
}

// ListCategories handles GET /api/categories
func (c *Client) ListCategories(ctx context.Context) ([]*models.Category, error) {
	var resp categoriesResponse
	if err := c.getJSON(ctx, CategoriesPath, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

type categoriesResponse struct {
	Categories []*models.Category `json:"categories"`
}

// Writes

// CreateArticle creates an article and invalidates article reads
func (c *Client) CreateArticle(ctx context.Context, in *models.ArticleInput) (*models.Article, error) {
	var article models.Article
	if err := c.write(ctx, http.MethodPost, ArticlesPath, in, &article, bus.TopicArticles); err != nil {
		return nil, err
	}
	return &article, nil
}

// UpdateArticle applies a partial update and invalidates article reads
func (c *Client) UpdateArticle(ctx context.Context, id string, p *models.ArticlePatch) (*models.Article, error) {
	var article models.Article
	if err := c.write(ctx, http.MethodPut, articlePath(id), p, &article, bus.TopicArticles); err != nil {
		return nil, err
	}
	return &article, nil
}

// DeleteArticle deletes an article and invalidates article reads
func (c *Client) DeleteArticle(ctx context.Context, id string) error {
	var resp struct {
		Success bool `json:"success"`
	}
	return c.write(ctx, http.MethodDelete, articlePath(id), nil, &resp, bus.TopicArticles)
}

// CreateCategory creates a category and invalidates category reads
func (c *Client) CreateCategory(ctx context.Context, in *models.CategoryInput) (*models.Category, error) {
	var category models.Category
	if err := c.write(ctx, http.MethodPost, CategoriesPath, in, &category, bus.TopicCategories); err != nil {
		return nil, err
	}
	return &category, nil
}

func articlePath(id string) string {
	return ArticlesPath + "/" + url.PathEscape(id)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.FetchRaw(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// write sends a mutation and, only once it succeeded, publishes on topic
func (c *Client) write(ctx context.Context, method, path string, in, out any, topic bus.Topic) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	body, err := c.send(ctx, method, path, nil, payload)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", method, err)
		}
	}

	if c.bus != nil {
		c.bus.Publish(topic)
	}
	c.log.Debug().Str("method", method).Str("path", path).Msg("Write completed")
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s: %w", method, path, err)
	}
	return body, nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
