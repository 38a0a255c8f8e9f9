package handlers

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"

	apperrors "tixgate/internal/errors"
	"tixgate/internal/middleware"
	"tixgate/internal/service"
)

type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{services: services}
}

// userID returns the buyer id the Identity middleware stored on the request
// context. Routes behind that middleware always have one.
func userID(c *gin.Context) string {
	id, _ := middleware.UserIDFromContext(c.Request.Context())
	return id
}

// respondError maps domain errors onto HTTP statuses. Anything unmapped is
// a 500 with a generic body; the real error only goes to the log.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrHoldExpired):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case apperrors.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperrors.IsCapacity(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		slog.Error("Request failed", "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
