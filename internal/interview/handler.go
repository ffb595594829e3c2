package interview

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"career-hub/internal/documents"
	"career-hub/internal/llm"
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

// RegisterRoutes attaches interview routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/interviews", h.start)
	rg.GET("/interviews", h.list)
	rg.GET("/interviews/:id", h.get)
	rg.POST("/interviews/:id/answers", h.answer)
	rg.POST("/interviews/:id/audio", h.answerAudio)
	rg.POST("/interviews/:id/end", h.end)
}

// SessionResponse is the JSON shape of a session.
type SessionResponse struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	CurrentQuestion string    `json:"currentQuestion"`
	JobDescription  string    `json:"jobDescription,omitempty"`
	Transcript      []Turn    `json:"transcript"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toResponse(s Session) SessionResponse {
	transcript := s.Transcript
	if transcript == nil {
		transcript = []Turn{}
	}
	return SessionResponse{
		ID:              s.ID,
		Status:          s.Status,
		CurrentQuestion: s.CurrentQuestion(),
		JobDescription:  s.JobDescription,
		Transcript:      transcript,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

type startRequest struct {
	JobDescription string `json:"jobDescription"`
	DocumentID     string `json:"documentId"`
	CVText         string `json:"cvText"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func (h *Handler) start(c *gin.Context) {
	var req startRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, "invalid request body", nil)
			return
		}
	}
	sess, err := h.Svc.Start(c.Request.Context(), middleware.UserIDFromContext(c), StartRequest{
		JobDescription: req.JobDescription,
		DocumentID:     req.DocumentID,
		CVText:         req.CVText,
	})
	if err != nil {
		writeError(c, err, "failed to start interview")
		return
	}
	respond.JSON(c, http.StatusCreated, toResponse(sess))
}

func (h *Handler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	sessions, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		writeError(c, err, "failed to list interviews")
		return
	}
	resp := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, toResponse(s))
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	sess, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch interview")
		return
	}
	respond.OK(c, toResponse(sess))
}

func (h *Handler) answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body", nil)
		return
	}
	res, err := h.Svc.Answer(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.Answer)
	if err != nil {
		writeError(c, err, "failed to answer")
		return
	}
	respond.OK(c, resultBody(res))
}

func (h *Handler) answerAudio(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxAudioBytes+1<<20)
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		respond.BadRequest(c, "audio is required", []map[string]string{
			{"field": "audio", "issue": "required"},
		})
		return
	}
	if fileHeader.Size > MaxAudioBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "audio exceeds 25MB", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.BadRequest(c, "unable to read audio", nil)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respond.BadRequest(c, "unable to read audio", nil)
		return
	}

	res, err := h.Svc.AnswerAudio(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), fileHeader.Filename, data)
	if err != nil {
		writeError(c, err, "failed to answer")
		return
	}
	respond.OK(c, resultBody(res))
}

func (h *Handler) end(c *gin.Context) {
	sess, err := h.Svc.End(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to end interview")
		return
	}
	respond.OK(c, toResponse(sess))
}

func resultBody(res Result) gin.H {
	return gin.H{
		"answer": res.Answer,
		"reply":  res.Reply,
		"ended":  res.Ended,
	}
}

func writeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, usage.ErrLimitReached):
		usage.WriteLimitReached(c)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, documents.ErrInvalidInput):
		respond.BadRequest(c, err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "interview not found", nil)
	case errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, ErrSessionEnded):
		respond.Error(c, http.StatusConflict, "session_ended", "interview has ended", nil)
	case errors.Is(err, ErrDuplicateAudio):
		respond.Error(c, http.StatusConflict, "duplicate_audio", "this recording was already submitted", nil)
	case errors.Is(err, llm.ErrNotConfigured):
		respond.Unavailable(c, "llm_unavailable", "language model is not configured")
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", msg, nil)
	}
}
