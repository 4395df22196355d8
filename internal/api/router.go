package api

import (
	"github.com/gin-gonic/gin"

	"golivebuddy/internal/api/admin"
	"golivebuddy/internal/api/chat"
	"golivebuddy/internal/api/middleware"
	"golivebuddy/internal/service"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	APIKey       string
	AllowOrigins []string
	FramesDir    string
}

// SetupRouter sets up the Gin router
func SetupRouter(
	chatService *service.ChatService,
	ticketService *service.TicketService,
	adminService *service.AdminService,
	analyticsService *service.AnalyticsService,
	cfg RouterConfig,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middleware.CORS(cfg.AllowOrigins))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Extracted video frame thumbnails, addressed as
	// /frames/{namespace}/{index}.jpg
	if cfg.FramesDir != "" {
		r.Static("/frames", cfg.FramesDir)
	}

	// Chat API (public)
	chatHandler := chat.NewHandler(chatService, ticketService)
	chatGroup := r.Group("/api/chat")
	chatHandler.RegisterRoutes(chatGroup)

	// Admin API (requires API key)
	adminHandler := admin.NewHandler(adminService, analyticsService)
	adminGroup := r.Group("/api/admin")
	adminGroup.Use(middleware.Auth(cfg.APIKey))
	adminHandler.RegisterRoutes(adminGroup)

	return r
}
