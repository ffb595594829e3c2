package remoteapi

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"career-hub/internal/advisor"
	"career-hub/internal/coverletter"
	"career-hub/internal/interview"
	"career-hub/internal/llm/llmtest"
	"career-hub/internal/orchestrator"
)

func newTestEngine(chat *llmtest.Chat) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := &Handler{
		Router:      orchestrator.New(chat, nil, nil, orchestrator.Config{}),
		Advisor:     advisor.NewAgent(chat, "", nil),
		CoverLetter: coverletter.NewGenerator(chat, ""),
		Interviewer: interview.NewAgent(chat, ""),
	}
	h.RegisterRoutes(r)
	return r
}

func post(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

func TestChatRoutesThroughOrchestrator(t *testing.T) {
	chat := llmtest.NewChat("CHAT", "Halo! Ada yang bisa dibantu?")
	r := newTestEngine(chat)

	rec := post(t, r, "/chat", gin.H{"message": "hi"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["response"]; got != "Halo! Ada yang bisa dibantu?" {
		t.Fatalf("unexpected response %q", got)
	}
}

func TestAnalyzeAndCoverLetter(t *testing.T) {
	chat := llmtest.NewChat("Strong backend profile.", "Dear Hiring Manager,")
	r := newTestEngine(chat)
	cv := base64.StdEncoding.EncodeToString([]byte("Jane Doe\nGo engineer with Postgres experience."))

	rec := post(t, r, "/cv/analyze", gin.H{"cv_base64": cv})
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["analysis"]; got != "Strong backend profile." {
		t.Fatalf("unexpected analysis %q", got)
	}

	rec = post(t, r, "/cover-letter/generate", gin.H{"cv_base64": cv, "job_description": "Backend role"})
	if rec.Code != http.StatusOK {
		t.Fatalf("cover letter: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["cover_letter"]; got != "Dear Hiring Manager," {
		t.Fatalf("unexpected letter %q", got)
	}
	if !strings.Contains(chat.LastUserMessage(), "Postgres experience") {
		t.Fatalf("cv text should reach the prompt")
	}
}

func TestInterviewRoutes(t *testing.T) {
	chat := llmtest.NewChat("Good. What is a goroutine leak?")
	r := newTestEngine(chat)

	req := httptest.NewRequest(http.MethodGet, "/interview/start", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := decode(t, rec)["first_question"]; got != interview.FirstQuestion {
		t.Fatalf("unexpected first question %q", got)
	}

	rec = post(t, r, "/interview/chat", gin.H{
		"candidate_answer":     "I write Go services.",
		"conversation_history": "Interviewer: " + interview.FirstQuestion + "\n",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["interviewer_response"]; got != "Good. What is a goroutine leak?" {
		t.Fatalf("unexpected response %q", got)
	}
}

func TestValidation(t *testing.T) {
	r := newTestEngine(llmtest.NewChat())
	tests := []struct {
		name string
		path string
		body any
	}{
		{"empty message", "/chat", gin.H{"message": " "}},
		{"missing cv", "/cv/analyze", gin.H{}},
		{"bad base64", "/cv/analyze", gin.H{"cv_base64": "%%%"}},
		{"missing job", "/cover-letter/generate", gin.H{"cv_base64": "aGVsbG8="}},
		{"missing answer", "/interview/chat", gin.H{"conversation_history": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, r, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), `"error"`) {
				t.Fatalf("expected error envelope, got %s", rec.Body.String())
			}
		})
	}
}
