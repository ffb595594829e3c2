package advisor

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"career-hub/internal/documents"
	"career-hub/internal/shared/server/middleware"
	"career-hub/internal/shared/server/respond"
	"career-hub/internal/usage"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches report routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reports", h.create)
	rg.GET("/reports", h.list)
	rg.GET("/reports/:id", h.get)
	rg.POST("/advice", h.advise)
}

type createRequest struct {
	DocumentID string `json:"documentId"`
}

type adviceRequest struct {
	CVText string `json:"cvText"`
}

// ReportResponse is the JSON shape of a report.
type ReportResponse struct {
	ID          string     `json:"id"`
	DocumentID  string     `json:"documentId"`
	Status      string     `json:"status"`
	Content     string     `json:"content,omitempty"`
	Matches     []JobMatch `json:"matches,omitempty"`
	Model       string     `json:"model,omitempty"`
	Error       *errorInfo `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type errorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func toResponse(r Report) ReportResponse {
	resp := ReportResponse{
		ID:          r.ID,
		DocumentID:  r.DocumentID,
		Status:      r.Status,
		Content:     r.Content,
		Matches:     r.Matches,
		Model:       r.Model,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
	}
	if r.Status == StatusFailed {
		resp.Error = &errorInfo{Code: r.ErrorCode, Message: r.ErrorMessage, Retryable: r.ErrorRetryable}
	}
	return resp
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		respond.BadRequest(c, "documentId is required", []map[string]string{
			{"field": "documentId", "issue": "required"},
		})
		return
	}

	report, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), req.DocumentID)
	if err != nil {
		writeError(c, err, "failed to create report")
		return
	}
	respond.JSON(c, http.StatusAccepted, toResponse(report))
}

func (h *Handler) get(c *gin.Context) {
	report, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch report")
		return
	}
	respond.OK(c, toResponse(report))
}

func (h *Handler) list(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view history", nil)
		return
	}
	limit := clampInt(c.Query("limit"), 20, 0, 50)
	offset := clampInt(c.Query("offset"), 0, 0, 1<<20)

	reports, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		writeError(c, err, "failed to list reports")
		return
	}
	resp := make([]ReportResponse, 0, len(reports))
	for _, r := range reports {
		resp = append(resp, toResponse(r))
	}
	respond.OK(c, resp)
}

func (h *Handler) advise(c *gin.Context) {
	var req adviceRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.CVText) == "" {
		respond.BadRequest(c, "cvText is required", []map[string]string{
			{"field": "cvText", "issue": "required"},
		})
		return
	}

	ctx := c.Request.Context()
	var rec Recommendation
	err := h.Svc.Usage.Gate(ctx, middleware.UserIDFromContext(c), func() error {
		var err error
		rec, err = h.Svc.Recommend(ctx, req.CVText)
		return err
	})
	if err != nil {
		writeError(c, err, "failed to generate advice")
		return
	}
	respond.OK(c, gin.H{
		"content": rec.Content,
		"matches": rec.Matches,
		"model":   rec.Model,
	})
}

func clampInt(raw string, def, min, max int) int {
	v := def
	if raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			v = parsed
		}
	}
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	return v
}

func writeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, usage.ErrLimitReached):
		usage.WriteLimitReached(c)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, documents.ErrInvalidInput):
		respond.BadRequest(c, err.Error(), nil)
	case errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", msg, nil)
	}
}
