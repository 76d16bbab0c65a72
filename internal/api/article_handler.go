package api

import (
	"net/http"
	"strconv"

	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/breakthrough-cafe/cafe-cms/internal/service"
	"github.com/breakthrough-cafe/cafe-cms/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ArticleHandler handles article endpoints
type ArticleHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewArticleHandler creates a new ArticleHandler
func NewArticleHandler(services *service.Services, log zerolog.Logger) *ArticleHandler {
	return &ArticleHandler{
		services: services,
		log:      log.With().Str("handler", "article").Logger(),
	}
}

// List handles GET /api/articles
func (h *ArticleHandler) List(c *gin.Context) {
	q, msg := parseArticleQuery(c)
	if msg != "" {
		badRequest(c, msg)
		return
	}

	list, err := h.services.Article.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// Get handles GET /api/articles/:id and counts a view
func (h *ArticleHandler) Get(c *gin.Context) {
	article, err := h.services.Article.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, article)
}

// Create handles POST /api/articles
func (h *ArticleHandler) Create(c *gin.Context) {
	var in models.ArticleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	article, err := h.services.Article.Create(c.Request.Context(), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, article)
}

// Update handles PUT /api/articles/:id. Only fields present in the body change.
func (h *ArticleHandler) Update(c *gin.Context) {
	var p models.ArticlePatch
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	article, err := h.services.Article.Update(c.Request.Context(), c.Param("id"), &p)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, article)
}

// Delete handles DELETE /api/articles/:id
func (h *ArticleHandler) Delete(c *gin.Context) {
	if err := h.services.Article.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// parseArticleQuery reads list parameters, returning a message for the first
// malformed one. Range checks on sortBy and status happen in the service.
func parseArticleQuery(c *gin.Context) (models.ArticleQuery, string) {
	filter, msg := parseArticleFilter(c)
	q := models.ArticleQuery{
		Filter: filter,
		SortBy: c.Query("sortBy"),
	}
	if msg != "" {
		return q, msg
	}

	if v := c.Query("isFeatured"); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			return q, "isFeatured must be true or false"
		}
		q.Filter.IsFeatured = &featured
	}

	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return q, "limit must be a positive integer"
		}
		q.Limit = limit
	}

	if v := c.Query("skip"); v != "" {
		skip, err := strconv.Atoi(v)
		if err != nil || skip < 0 {
			return q, "skip must be a non-negative integer"
		}
		q.Skip = skip
	}

	switch c.DefaultQuery("sortOrder", "desc") {
	case "desc":
		q.SortDesc = true
	case "asc":
		q.SortDesc = false
	default:
		return q, "sortOrder must be asc or desc"
	}

	return q, ""
}

func parseArticleFilter(c *gin.Context) (models.ArticleFilter, string) {
	filter := models.ArticleFilter{
		Category: c.Query("category"),
		Status:   models.ArticleStatus(c.Query("status")),
	}
	if filter.Category != "" && !validation.IsValidSlug(filter.Category) {
		return filter, "category must be a category slug"
	}
	return filter, ""
}
