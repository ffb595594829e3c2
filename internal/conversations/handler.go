package conversations

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"career-hub/internal/orchestrator"
	"career-hub/internal/shared/server/middleware"
	"career-hub/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches conversation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/conversations", h.create)
	rg.GET("/conversations", h.list)
	rg.GET("/conversations/:id/messages", h.messages)
	rg.POST("/conversations/:id/messages", h.send)
	rg.POST("/conversations/:id/stream", h.stream)
	rg.DELETE("/conversations/:id", h.delete)
}

type createRequest struct {
	Title string `json:"title"`
}

type sendRequest struct {
	Content string `json:"content"`
	Mode    string `json:"mode"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, "invalid request body", nil)
			return
		}
	}
	conv, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), req.Title)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, toConversationResponse(conv))
}

func (h *Handler) list(c *gin.Context) {
	limit := queryInt(c, "limit", 20, 50)
	offset := queryInt(c, "offset", 0, -1)
	convs, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	items := make([]conversationResponse, 0, len(convs))
	for _, conv := range convs {
		items = append(items, toConversationResponse(conv))
	}
	respond.OK(c, gin.H{"items": items, "limit": limit, "offset": offset})
}

func (h *Handler) messages(c *gin.Context) {
	msgs, err := h.Svc.Messages(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), queryInt(c, "limit", 100, 500))
	if err != nil {
		h.writeError(c, err)
		return
	}
	items := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, toMessageResponse(m))
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body", nil)
		return
	}
	ex, err := h.Svc.Send(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.Content, modeFrom(req.Mode), nil)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, gin.H{
		"message": toMessageResponse(ex.User),
		"reply":   toMessageResponse(ex.Assistant),
	})
}

// stream relays orchestrator events as server-sent events, one per step,
// ending with the stored reply.
func (h *Handler) stream(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body", nil)
		return
	}
	if _, err := ValidateContent(req.Content); err != nil {
		h.writeError(c, err)
		return
	}
	userID := middleware.UserIDFromContext(c)
	convID := c.Param("id")
	if _, err := h.Svc.Get(c.Request.Context(), userID, convID); err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	emit := func(ev orchestrator.Event) {
		if ev.Type == orchestrator.EventDone {
			return
		}
		c.SSEvent(string(ev.Type), ev)
		c.Writer.Flush()
	}
	ex, err := h.Svc.Send(c.Request.Context(), userID, convID, req.Content, modeFrom(req.Mode), emit)
	if err != nil {
		c.SSEvent(string(orchestrator.EventError), orchestrator.Event{Type: orchestrator.EventError, Error: err.Error()})
	}
	c.SSEvent(string(orchestrator.EventDone), gin.H{
		"type":  orchestrator.EventDone,
		"route": ex.Assistant.Route,
		"reply": toMessageResponse(ex.Assistant),
	})
	c.Writer.Flush()
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.BadRequest(c, err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "conversation not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "conversation request failed", nil)
	}
}

func modeFrom(raw string) orchestrator.Mode {
	if raw == "" {
		return ""
	}
	return orchestrator.ParseMode(raw)
}

func queryInt(c *gin.Context, key string, def, max int) int {
	v := def
	if raw := c.Query(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			v = parsed
		}
	}
	if v < 0 {
		v = 0
	}
	if max > 0 && v > max {
		v = max
	}
	return v
}

type conversationResponse struct {
	ID        string    `json:"conversationId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type messageResponse struct {
	ID        string    `json:"messageId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Route     string    `json:"route,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toConversationResponse(conv Conversation) conversationResponse {
	return conversationResponse{ID: conv.ID, Title: conv.Title, CreatedAt: conv.CreatedAt, UpdatedAt: conv.UpdatedAt}
}

func toMessageResponse(m Message) messageResponse {
	return messageResponse{ID: m.ID, Role: m.Role, Content: m.Content, Route: m.Route, CreatedAt: m.CreatedAt}
}
