package api

import (
	"net/http"

	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/breakthrough-cafe/cafe-cms/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		log:      log.With().Str("handler", "export").Logger(),
	}
}

// StreamExport handles GET /api/articles/export?format=...&status=...
// Streams the export directly to the response
func (h *ExportHandler) StreamExport(c *gin.Context) {
	format := c.DefaultQuery("format", service.FormatNDJSON)

	var contentType string
	switch format {
	case service.FormatNDJSON:
		contentType = "application/x-ndjson"
	case service.FormatJSON:
		contentType = "application/json"
	default:
		badRequest(c, "format must be one of: ndjson, json")
		return
	}

	filter, msg := parseArticleFilter(c)
	if msg != "" {
		badRequest(c, msg)
		return
	}
	if filter.Status != "" && !models.ValidStatuses[filter.Status] {
		badRequest(c, "invalid status")
		return
	}

	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", "attachment; filename=articles."+format)
	c.Status(http.StatusOK)

	count, err := h.services.Export.StreamArticles(c.Request.Context(), c.Writer, format, filter)
	if err != nil {
		// Can't return error JSON after streaming has started
		h.log.Error().Err(err).Int("count", count).Msg("Export failed")
		return
	}
}
