package coverletter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"career-hub/internal/documents"
	"career-hub/internal/llm/llmtest"
	"career-hub/internal/usage"
)

type fakeText map[string]string

func (f fakeText) Text(ctx context.Context, userID, documentID string) (string, error) {
	text, ok := f[documentID]
	if !ok {
		return "", documents.ErrNotFound
	}
	return text, nil
}

func newService(chat *llmtest.Chat, limit int) *Service {
	return &Service{
		Generator: NewGenerator(chat, ""),
		Docs:      fakeText{"doc-1": "Senior Go engineer, built payment APIs."},
		Usage:     usage.NewService(limit),
	}
}

func TestGeneratorRequiresBothInputs(t *testing.T) {
	chat := llmtest.NewChat("letter")
	g := NewGenerator(chat, "")
	ctx := context.Background()

	if _, err := g.Generate(ctx, "", "Backend role"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty cv, got %v", err)
	}
	if _, err := g.Generate(ctx, "cv", "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty job, got %v", err)
	}
	if chat.Calls() != 0 {
		t.Fatalf("model should not be called, got %d calls", chat.Calls())
	}
}

func TestGeneratorRendersPrompt(t *testing.T) {
	chat := llmtest.NewChat("Dear Hiring Manager,")
	g := NewGenerator(chat, "")

	letter, err := g.Generate(context.Background(), "Go engineer", "Backend role at Acme")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if letter != "Dear Hiring Manager," {
		t.Fatalf("unexpected letter %q", letter)
	}
	prompt := chat.LastUserMessage()
	if !strings.Contains(prompt, "Go engineer") || !strings.Contains(prompt, "Backend role at Acme") {
		t.Fatalf("prompt missing inputs: %q", prompt)
	}
	if got := chat.Requests[0].Model; got != DefaultModel {
		t.Fatalf("expected model %s, got %s", DefaultModel, got)
	}
}

func TestServiceResolvesDocumentText(t *testing.T) {
	chat := llmtest.NewChat("letter")
	svc := newService(chat, 5)

	if _, err := svc.Generate(context.Background(), "u1", Request{DocumentID: "doc-1", JobDescription: "Go role"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(chat.LastUserMessage(), "payment APIs") {
		t.Fatalf("document text should reach the prompt: %q", chat.LastUserMessage())
	}

	_, err := svc.Generate(context.Background(), "u1", Request{DocumentID: "other", JobDescription: "Go role"})
	if !errors.Is(err, documents.ErrNotFound) {
		t.Fatalf("expected documents.ErrNotFound, got %v", err)
	}
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	chat := llmtest.NewChat("Dear Hiring Manager,\nI am excited.", "Dear Hiring Manager,\nI am excited.")
	r := gin.New()
	rg := r.Group("/api/v1")
	rg.Use(func(c *gin.Context) { c.Set("userId", "u1"); c.Next() })
	NewHandler(newService(chat, 2)).RegisterRoutes(rg)

	post := func(path string, body any) *httptest.ResponseRecorder {
		buf, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := post("/api/v1/cover-letters", gin.H{"cvText": "Go engineer", "jobDescription": "Backend"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "coverLetter") {
		t.Fatalf("generate: %d %s", rec.Code, rec.Body.String())
	}

	rec = post("/api/v1/cover-letters?download=1", gin.H{"documentId": "doc-1", "jobDescription": "Backend"})
	if rec.Code != http.StatusOK {
		t.Fatalf("download: %d %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "cover_letter.txt") {
		t.Fatalf("unexpected Content-Disposition %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "Dear Hiring Manager") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}

	rec = post("/api/v1/cover-letters", gin.H{"cvText": "Go engineer", "jobDescription": "Backend"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	rec = post("/api/v1/cover-letters", gin.H{"cvText": "Go engineer"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
