package account

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/askchat/internal/api/respond"
	"github.com/liliang-cn/askchat/internal/domain"
)

// Broker is the browser login collaborator. Implemented by auth.Broker.
type Broker interface {
	NeedLogin() bool
	Login(ctx context.Context, username, password string) error
}

// UserInfoSource looks up the logged-in account. Implemented by client.Client.
type UserInfoSource interface {
	UserInfo(ctx context.Context) (*domain.UserInfo, error)
}

// Handler handles login state requests
type Handler struct {
	broker Broker
	users  UserInfoSource
}

// NewHandler creates a new account handler. users may be nil.
func NewHandler(broker Broker, users UserInfoSource) *Handler {
	return &Handler{broker: broker, users: users}
}

// RegisterRoutes registers account routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/auth/status", h.Status)
	r.POST("/login", h.Login)
	if h.users != nil {
		r.GET("/userinfo", h.UserInfo)
	}
}

// Status reports whether a request is parked waiting for login
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"need_login": h.broker.NeedLogin()})
}

// Login authenticates and resumes parked requests
func (h *Handler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.broker.Login(c.Request.Context(), req.Username, req.Password); err != nil {
		respond.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UserInfo returns the account behind the stored token
func (h *Handler) UserInfo(c *gin.Context) {
	info, err := h.users.UserInfo(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
