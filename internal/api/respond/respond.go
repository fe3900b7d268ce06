package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/askchat/internal/client"
	"github.com/liliang-cn/askchat/internal/domain"
)

// Status maps an error to an HTTP status code
func Status(err error) int {
	var transportErr *client.TransportError
	var authErr *client.AuthRequiredError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrNoAssistantTurn):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized), errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.As(err, &transportErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as a JSON error body
func Error(c *gin.Context, err error) {
	c.JSON(Status(err), gin.H{"error": err.Error()})
}
