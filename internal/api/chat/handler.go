package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"golivebuddy/internal/domain"
	"golivebuddy/internal/service"
)

// Handler handles the chat API: sessions, turns, votes, ticket drafts
type Handler struct {
	chatService   *service.ChatService
	ticketService *service.TicketService
}

// NewHandler creates a new chat handler
func NewHandler(chatService *service.ChatService, ticketService *service.TicketService) *Handler {
	return &Handler{
		chatService:   chatService,
		ticketService: ticketService,
	}
}

// RegisterRoutes registers chat routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/sessions")
	{
		sessions.GET("", h.ListSessions)
		sessions.POST("", h.CreateSession)
		sessions.POST("/:id/select", h.SelectSession)
		sessions.DELETE("/:id", h.DeleteSession)
	}

	r.POST("/turn", h.SubmitTurn)
	r.POST("/messages/:id/vote", h.Vote)
	r.GET("/messages/:id/ticket", h.DraftTicket)
	r.POST("/tickets", h.SubmitTicket)
}

// ListSessions returns the full session collection and the active pointer
func (h *Handler) ListSessions(c *gin.Context) {
	store := h.chatService.Store()
	c.JSON(http.StatusOK, gin.H{
		"sessions":  store.Sessions(),
		"active_id": store.ActiveID(),
	})
}

// CreateSession creates a new empty session and makes it active
func (h *Handler) CreateSession(c *gin.Context) {
	sess := h.chatService.Store().CreateSession()
	c.JSON(http.StatusCreated, sess)
}

// SelectSession makes an existing session active
func (h *Handler) SelectSession(c *gin.Context) {
	id := c.Param("id")
	sess, err := h.chatService.Store().SelectSession(id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sess)
}

// DeleteSession removes a session
func (h *Handler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.chatService.Store().DeleteSession(id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "session deleted",
		"active_id": h.chatService.Store().ActiveID(),
	})
}

// SubmitTurn appends a user turn and streams the assistant answer as SSE
// events. When the backend cannot be reached the request payload is echoed
// back so the client can restore the user's input.
func (h *Handler) SubmitTurn(c *gin.Context) {
	var req domain.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.chatService.SubmitTurn(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrTurnInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": "a turn is already streaming for this session"})
		default:
			// backend unreachable or refused; echo the input for retry
			c.JSON(http.StatusBadGateway, gin.H{
				"error": err.Error(),
				"retry": gin.H{"message": req.Message, "image": req.Image},
			})
		}
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		data, _ := json.Marshal(ev)
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, string(data))
		return true
	})
}

// Vote records helpful/unhelpful feedback on an assistant message
func (h *Handler) Vote(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Helpful *bool `json:"helpful" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.chatService.Store().MarkHelpful(id, *req.Helpful); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "vote recorded"})
}

// DraftTicket derives a support ticket draft from an assistant message
func (h *Handler) DraftTicket(c *gin.Context) {
	id := c.Param("id")

	draft, err := h.ticketService.Draft(id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		case errors.Is(err, domain.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, draft)
}

// SubmitTicket forwards a finished draft to the ticketing integration
func (h *Handler) SubmitTicket(c *gin.Context) {
	var draft domain.TicketDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.ticketService.Submit(c.Request.Context(), &draft); err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "ticket submitted"})
}
