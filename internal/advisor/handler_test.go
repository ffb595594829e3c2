package advisor

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"career-hub/internal/llm/llmtest"
)

func newTestRouter(svc *Service, userID string, guest bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rg := r.Group("/api/v1")
	rg.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("isGuest", guest)
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

func TestReportRoutes(t *testing.T) {
	svc, _ := newQueuedService(llmtest.NewChat(), fakeDocs{}, 5)
	r := newTestRouter(svc, "u1", false)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/reports", gin.H{"documentId": "doc-1"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("create: expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var created ReportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != StatusQueued || created.ID == "" {
		t.Fatalf("unexpected response: %+v", created)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/reports/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/reports", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var list []ReportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("list decode: %v %s", err, rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/reports/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing: expected 404, got %d", rec.Code)
	}
}

func TestReportRoutesValidation(t *testing.T) {
	svc, _ := newQueuedService(llmtest.NewChat(), fakeDocs{}, 5)
	r := newTestRouter(svc, "guest:abc", true)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing document id", http.MethodPost, "/api/v1/reports", gin.H{}, http.StatusBadRequest},
		{"unknown document", http.MethodPost, "/api/v1/reports", gin.H{"documentId": "missing"}, http.StatusNotFound},
		{"guest history", http.MethodGet, "/api/v1/reports", nil, http.StatusUnauthorized},
		{"empty advice", http.MethodPost, "/api/v1/advice", gin.H{"cvText": "  "}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, r, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAdviceIsGatedByUsage(t *testing.T) {
	svc, _ := newQueuedService(llmtest.NewChat("Focus on Go roles."), fakeDocs{}, 1)
	r := newTestRouter(svc, "u1", false)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/advice", gin.H{"cvText": "Go developer"})
	if rec.Code != http.StatusOK {
		t.Fatalf("advice: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Content string     `json:"content"`
		Matches []JobMatch `json:"matches"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Content != "Focus on Go roles." || len(body.Matches) != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/v1/advice", gin.H{"cvText": "Go developer"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}
