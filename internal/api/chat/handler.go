package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/askchat/internal/api/respond"
	"github.com/liliang-cn/askchat/internal/domain"
	"github.com/liliang-cn/askchat/internal/service"
	"go.uber.org/zap"
)

// Handler handles chat API requests
type Handler struct {
	chatService *service.ChatService
	logger      *zap.Logger
}

// NewHandler creates a new chat handler
func NewHandler(chatService *service.ChatService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{chatService: chatService, logger: logger}
}

// RegisterRoutes registers chat routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.CreateSession)
	r.GET("/:id", h.GetSession)
	r.POST("/:id/messages", h.Submit)
	r.POST("/:id/regenerate", h.Regenerate)
	r.POST("/:id/stop", h.Stop)
}

// CreateSession starts an empty conversation
func (h *Handler) CreateSession(c *gin.Context) {
	session, err := h.chatService.CreateSession(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// GetSession returns the transcript and loading flag
func (h *Handler) GetSession(c *gin.Context) {
	view, err := h.chatService.View(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Submit sends a user message and streams the reply (SSE)
func (h *Handler) Submit(c *gin.Context) {
	var req domain.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	turn, err := h.chatService.Submit(c.Request.Context(), c.Param("id"), req.Content, req.Extra)
	if err != nil {
		respond.Error(c, err)
		return
	}
	h.streamTurn(c, turn)
}

// Regenerate re-runs the last assistant turn (SSE)
func (h *Handler) Regenerate(c *gin.Context) {
	var req domain.RegenerateRequest
	// The body is optional; an empty one, chunked or not, ends at EOF
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	turn, err := h.chatService.Regenerate(c.Request.Context(), c.Param("id"), req.Extra)
	if err != nil {
		respond.Error(c, err)
		return
	}
	h.streamTurn(c, turn)
}

// Stop cancels the running turn
func (h *Handler) Stop(c *gin.Context) {
	if err := h.chatService.Stop(c.Request.Context(), c.Param("id")); err != nil {
		respond.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// streamTurn pushes a transcript snapshot on every change until the turn ends
func (h *Handler) streamTurn(c *gin.Context, turn *service.Turn) {
	conv := turn.Conversation()
	changes, stop := conv.Transcript.Watch()
	defer stop()

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	h.writeEvent(c.Writer, "transcript", conv.View())

	c.Stream(func(w io.Writer) bool {
		select {
		case <-changes:
			h.writeEvent(w, "transcript", conv.View())
			return true
		case <-turn.Done():
			summary, err := turn.Wait(c.Request.Context())
			h.writeEvent(w, "transcript", conv.View())
			if err != nil {
				h.writeEvent(w, "error", gin.H{"error": err.Error(), "status": respond.Status(err)})
				return false
			}
			h.writeEvent(w, "done", gin.H{
				"state":     summary.State.String(),
				"frames":    summary.Frames,
				"malformed": summary.Decode.Malformed,
			})
			return false
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *Handler) writeEvent(w io.Writer, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to encode SSE payload", zap.String("event", eventType), zap.Error(err))
		return
	}
	writeSSE(w, eventType, string(data))
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func writeSSE(w io.Writer, eventType, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data)
}
