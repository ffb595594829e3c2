package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := NewMemoryRepo()
	if _, err := repo.Upsert(context.Background(), []Listing{
		{ID: "1", Title: "Data Analyst", Location: "Jakarta"},
		{ID: "2", Title: "Product Manager", Location: "Surabaya"},
		{ID: "3", Title: "Data Scientist", Location: "Jakarta"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := gin.New()
	NewHandler(repo).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestListJobs(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "all", query: "", want: 3},
		{name: "keyword", query: "?q=data", want: 2},
		{name: "keyword and location", query: "?q=data&location=jakarta", want: 2},
		{name: "location", query: "?location=surabaya", want: 1},
		{name: "limit", query: "?limit=1", want: 1},
		{name: "offset past end", query: "?offset=10", want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs"+tc.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			var body struct {
				Items []Listing `json:"items"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(body.Items) != tc.want {
				t.Fatalf("expected %d items, got %d", tc.want, len(body.Items))
			}
		})
	}
}

func TestGetJob(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/404", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
