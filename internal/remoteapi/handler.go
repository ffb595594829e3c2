// Package remoteapi serves the unauthenticated JSON routes used by the
// lightweight frontend.
package remoteapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"career-hub/internal/advisor"
	"career-hub/internal/coverletter"
	"career-hub/internal/extract"
	"career-hub/internal/interview"
	"career-hub/internal/orchestrator"
	"career-hub/internal/shared/server/respond"
	"career-hub/internal/shared/telemetry"
)

// Router answers free-form questions.
type Router interface {
	RouteQuery(ctx context.Context, query string) orchestrator.Reply
}

// Advisor analyses résumé text.
type Advisor interface {
	Recommend(ctx context.Context, cvText string) (advisor.Recommendation, error)
}

// CoverLetterWriter drafts cover letters.
type CoverLetterWriter interface {
	Generate(ctx context.Context, cvText, jobDescription string) (string, error)
}

// Interviewer produces the next interview line.
type Interviewer interface {
	Respond(ctx context.Context, in interview.Input) (string, error)
}

// Handler serves the root-level routes. Nil components answer 503.
type Handler struct {
	Router      Router
	Advisor     Advisor
	CoverLetter CoverLetterWriter
	Interviewer Interviewer
}

// RegisterRoutes attaches the routes to r.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/chat", h.chat)
	r.POST("/cv/analyze", h.analyzeCV)
	r.POST("/cover-letter/generate", h.generateCoverLetter)
	r.GET("/interview/start", h.startInterview)
	r.POST("/interview/chat", h.interviewChat)
}

type chatRequest struct {
	Message string `json:"message"`
}

type analyzeRequest struct {
	CVBase64 string `json:"cv_base64"`
}

type coverLetterRequest struct {
	CVBase64       string `json:"cv_base64"`
	JobDescription string `json:"job_description"`
}

type interviewChatRequest struct {
	CandidateAnswer     string `json:"candidate_answer"`
	ConversationHistory string `json:"conversation_history"`
	JobDescription      string `json:"job_description"`
	CVText              string `json:"cv_text"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		respond.BadRequest(c, "message is required", required("message"))
		return
	}
	if h.Router == nil {
		unavailable(c)
		return
	}
	reply := h.Router.RouteQuery(c.Request.Context(), req.Message)
	respond.OK(c, gin.H{"response": reply.Content})
}

func (h *Handler) analyzeCV(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.CVBase64) == "" {
		respond.BadRequest(c, "cv_base64 is required", required("cv_base64"))
		return
	}
	if h.Advisor == nil {
		unavailable(c)
		return
	}
	ctx := c.Request.Context()
	text, err := extract.TextFromBase64(ctx, req.CVBase64)
	if err != nil {
		writeExtractError(c, err)
		return
	}
	rec, err := h.Advisor.Recommend(ctx, text)
	if err != nil {
		writeLLMError(c, err, "failed to analyze cv")
		return
	}
	respond.OK(c, gin.H{"analysis": rec.Content})
}

func (h *Handler) generateCoverLetter(c *gin.Context) {
	var req coverLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.CVBase64) == "" {
		respond.BadRequest(c, "cv_base64 is required", required("cv_base64"))
		return
	}
	if strings.TrimSpace(req.JobDescription) == "" {
		respond.BadRequest(c, "job_description is required", required("job_description"))
		return
	}
	if h.CoverLetter == nil {
		unavailable(c)
		return
	}
	ctx := c.Request.Context()
	text, err := extract.TextFromBase64(ctx, req.CVBase64)
	if err != nil {
		writeExtractError(c, err)
		return
	}
	letter, err := h.CoverLetter.Generate(ctx, text, req.JobDescription)
	if err != nil {
		writeLLMError(c, err, "failed to generate cover letter")
		return
	}
	respond.OK(c, gin.H{"cover_letter": letter})
}

func (h *Handler) startInterview(c *gin.Context) {
	respond.OK(c, gin.H{"first_question": interview.FirstQuestion})
}

func (h *Handler) interviewChat(c *gin.Context) {
	var req interviewChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.CandidateAnswer) == "" {
		respond.BadRequest(c, "candidate_answer is required", required("candidate_answer"))
		return
	}
	if h.Interviewer == nil {
		unavailable(c)
		return
	}
	reply, err := h.Interviewer.Respond(c.Request.Context(), interview.Input{
		History:        req.ConversationHistory,
		Answer:         req.CandidateAnswer,
		JobDescription: req.JobDescription,
		CVText:         req.CVText,
	})
	if err != nil {
		writeLLMError(c, err, "failed to generate interviewer response")
		return
	}
	respond.OK(c, gin.H{"interviewer_response": reply})
}

func required(field string) []map[string]string {
	return []map[string]string{{"field": field, "issue": "required"}}
}

func unavailable(c *gin.Context) {
	respond.Unavailable(c, "unavailable", "service is not configured")
}

func writeExtractError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, extract.ErrInvalidBase64):
		respond.BadRequest(c, "cv_base64 is not valid base64", nil)
	case errors.Is(err, extract.ErrEmptyText):
		respond.BadRequest(c, "no text could be extracted from the cv", nil)
	default:
		telemetry.Warn("remoteapi.extract_failed", map[string]any{
			"request_id": telemetry.RequestIDFrom(c.Request.Context()),
			"error":      err,
		})
		respond.BadRequest(c, "unsupported cv format", nil)
	}
}

func writeLLMError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, advisor.ErrInvalidInput),
		errors.Is(err, coverletter.ErrInvalidInput),
		errors.Is(err, interview.ErrInvalidInput):
		respond.BadRequest(c, err.Error(), nil)
	default:
		respond.Error(c, http.StatusBadGateway, "llm_error", msg, nil)
	}
}
