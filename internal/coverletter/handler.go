package coverletter

import (
	"errors"
	"net/http"

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

// RegisterRoutes attaches cover letter routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/cover-letters", h.generate)
}

type generateRequest struct {
	DocumentID     string `json:"documentId"`
	CVText         string `json:"cvText"`
	JobDescription string `json:"jobDescription"`
}

func (h *Handler) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body", nil)
		return
	}

	letter, err := h.Svc.Generate(c.Request.Context(), middleware.UserIDFromContext(c), Request{
		DocumentID:     req.DocumentID,
		CVText:         req.CVText,
		JobDescription: req.JobDescription,
	})
	if err != nil {
		switch {
		case errors.Is(err, usage.ErrLimitReached):
			usage.WriteLimitReached(c)
		case errors.Is(err, ErrInvalidInput), errors.Is(err, documents.ErrInvalidInput):
			respond.BadRequest(c, err.Error(), nil)
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusBadGateway, "llm_error", "failed to generate cover letter", nil)
		}
		return
	}

	if c.Query("download") == "1" {
		respond.Attachment(c, "cover_letter.txt", "text/plain; charset=utf-8", []byte(letter))
		return
	}
	respond.OK(c, gin.H{"coverLetter": letter})
}
