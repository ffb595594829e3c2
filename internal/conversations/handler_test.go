package conversations

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"career-hub/internal/orchestrator"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rg := r.Group("/api/v1")
	rg.Use(func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(rg)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerConversationLifecycle(t *testing.T) {
	svc, _ := newTestService(orchestrator.Reply{Route: orchestrator.RouteRAG, Content: "Go, SQL, Docker."})
	r := newTestRouter(svc)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/conversations", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"conversationId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil || created.ID == "" {
		t.Fatalf("decode create: %v %s", err, rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodPost, "/api/v1/conversations/"+created.ID+"/messages", gin.H{"content": "What skills?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("send: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var sent struct {
		Reply struct {
			Content string `json:"content"`
			Route   string `json:"route"`
		} `json:"reply"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sent); err != nil {
		t.Fatalf("decode send: %v", err)
	}
	if sent.Reply.Content != "Go, SQL, Docker." || sent.Reply.Route != "rag" {
		t.Fatalf("unexpected reply %+v", sent.Reply)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/conversations/"+created.ID+"/messages", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "What skills?") {
		t.Fatalf("messages: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodDelete, "/api/v1/conversations/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, r, http.MethodGet, "/api/v1/conversations/"+created.ID+"/messages", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestHandlerSendValidation(t *testing.T) {
	svc, _ := newTestService(orchestrator.Reply{Content: "x"})
	r := newTestRouter(svc)
	conv, _ := svc.Create(t.Context(), "user-1", "")

	rec := doJSON(t, r, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/messages", gin.H{"content": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = doJSON(t, r, http.MethodPost, "/api/v1/conversations/missing/messages", gin.H{"content": "hi"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandlerStreamRelaysEvents(t *testing.T) {
	svc, _ := newTestService(orchestrator.Reply{Route: orchestrator.RouteChat, Content: "Halo!"})
	r := newTestRouter(svc)
	conv, _ := svc.Create(t.Context(), "user-1", "")

	rec := doJSON(t, r, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/stream", gin.H{"content": "halo"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	route := strings.Index(body, "event:route")
	message := strings.Index(body, "event:message")
	done := strings.Index(body, "event:done")
	if route < 0 || message < route || done < message {
		t.Fatalf("unexpected event order:\n%s", body)
	}
	if strings.Count(body, "event:done") != 1 {
		t.Fatalf("expected a single done event:\n%s", body)
	}
}

func TestHandlerStreamRejectsInvalidContentBeforeStreaming(t *testing.T) {
	svc, _ := newTestService(orchestrator.Reply{Content: "x"})
	r := newTestRouter(svc)
	conv, _ := svc.Create(t.Context(), "user-1", "")

	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: "   "},
		{name: "oversized", content: strings.Repeat("a", maxMessageSize+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/stream", gin.H{"content": tt.content})
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); strings.HasPrefix(ct, "text/event-stream") {
				t.Fatalf("stream must not start for invalid content")
			}
		})
	}
}
