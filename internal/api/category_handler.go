package api

import (
	"net/http"

	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/breakthrough-cafe/cafe-cms/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CategoryHandler handles category endpoints
type CategoryHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(services *service.Services, log zerolog.Logger) *CategoryHandler {
	return &CategoryHandler{
		services: services,
		log:      log.With().Str("handler", "category").Logger(),
	}
}

// List handles GET /api/categories
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.services.Category.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// Create handles POST /api/categories
func (h *CategoryHandler) Create(c *gin.Context) {
	var in models.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	category, err := h.services.Category.Create(c.Request.Context(), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, category)
}
