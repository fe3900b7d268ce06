package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/askchat/internal/api/respond"
	"github.com/liliang-cn/askchat/internal/service"
)

// Handler handles admin API requests
type Handler struct {
	sessionService *service.SessionService
}

// NewHandler creates a new admin handler
func NewHandler(sessionService *service.SessionService) *Handler {
	return &Handler{sessionService: sessionService}
}

// RegisterRoutes registers admin routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/sessions")
	{
		sessions.GET("", h.ListSessions)
		sessions.DELETE("/:id", h.DeleteSession)
	}

	r.GET("/stats", h.GetStats)
}

// Session handlers

func (h *Handler) ListSessions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	sessions, err := h.sessionService.ListSessions(c.Request.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions":  sessions,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.sessionService.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "session deleted"})
}

// Stats handler

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.sessionService.GetStats(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
