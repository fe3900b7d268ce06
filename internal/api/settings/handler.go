package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/askchat/internal/service"
)

// Handler serves read-only client settings
type Handler struct {
	settingsService *service.SettingsService
}

// NewHandler creates a new settings handler
func NewHandler(settingsService *service.SettingsService) *Handler {
	return &Handler{settingsService: settingsService}
}

// RegisterRoutes registers settings routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/config", h.GetConfig)
	r.GET("/welcome", h.GetWelcome)
}

func (h *Handler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.settingsService.Display())
}

func (h *Handler) GetWelcome(c *gin.Context) {
	c.JSON(http.StatusOK, h.settingsService.Welcome())
}
