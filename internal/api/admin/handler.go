package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"golivebuddy/internal/domain"
	"golivebuddy/internal/service"
)

// Handler handles admin API requests
type Handler struct {
	adminService     *service.AdminService
	analyticsService *service.AnalyticsService
}

// NewHandler creates a new admin handler
func NewHandler(adminService *service.AdminService, analyticsService *service.AnalyticsService) *Handler {
	return &Handler{
		adminService:     adminService,
		analyticsService: analyticsService,
	}
}

// RegisterRoutes registers admin routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/ingest", h.Ingest)
	r.GET("/stats", h.GetStats)

	pulse := r.Group("/pulse")
	{
		pulse.GET("/:tech_id", h.GetPulse)
		pulse.POST("/:tech_id/generate", h.GeneratePulse)
	}
}

// Ingest forwards a content ingestion request to the backend pipeline
func (h *Handler) Ingest(c *gin.Context) {
	var req domain.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.adminService.ForwardIngest(c.Request.Context(), &req); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "ingestion started"})
}

// GetStats returns system statistics
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.adminService.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetPulse returns the most recent pulse snapshot for a tech pack
func (h *Handler) GetPulse(c *gin.Context) {
	techID := c.Param("tech_id")

	snap, err := h.analyticsService.Latest(techID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no pulse snapshot yet"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snap)
}

// GeneratePulse builds a fresh pulse snapshot from the recent query log
func (h *Handler) GeneratePulse(c *gin.Context) {
	techID := c.Param("tech_id")

	snap, err := h.analyticsService.Generate(c.Request.Context(), techID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, snap)
}
