package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/askchat/internal/api/account"
	"github.com/liliang-cn/askchat/internal/api/admin"
	"github.com/liliang-cn/askchat/internal/api/chat"
	"github.com/liliang-cn/askchat/internal/api/middleware"
	"github.com/liliang-cn/askchat/internal/api/settings"
	"github.com/liliang-cn/askchat/internal/service"
	"go.uber.org/zap"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	APIKey       string
	AllowOrigins []string
	Logger       *zap.Logger
	// Metrics serves /metrics when set
	Metrics http.Handler
}

// Services groups what the routes call into
type Services struct {
	Chat     *service.ChatService
	Sessions *service.SessionService
	Settings *service.SettingsService
	Broker   account.Broker
	Users    account.UserInfoSource
}

// SetupRouter sets up the Gin router
func SetupRouter(svc Services, cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))

	// CORS middleware
	r.Use(middleware.CORS(cfg.AllowOrigins))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	apiGroup := r.Group("/api")
	settings.NewHandler(svc.Settings).RegisterRoutes(apiGroup)
	account.NewHandler(svc.Broker, svc.Users).RegisterRoutes(apiGroup)

	chatHandler := chat.NewHandler(svc.Chat, logger)
	chatHandler.RegisterRoutes(apiGroup.Group("/sessions"))

	// Admin API (requires API key)
	adminHandler := admin.NewHandler(svc.Sessions)
	adminGroup := apiGroup.Group("/admin")
	adminGroup.Use(middleware.Auth(cfg.APIKey))
	adminHandler.RegisterRoutes(adminGroup)

	return r
}
