package api

import (
	"errors"
	"net/http"

	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/breakthrough-cafe/cafe-cms/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const internalErrorMessage = "internal server error"

// respondError maps a service error to its status code. Store failures are
// logged and returned with a generic message.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var verrs validation.Errors

	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": verrs.Error(), "details": []validation.ValidationError(verrs)})
	case errors.Is(err, models.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidID.Error()})
	case errors.Is(err, models.ErrDuplicateSlug):
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrDuplicateSlug.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": models.ErrNotFound.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": internalErrorMessage})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
