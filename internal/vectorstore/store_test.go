package vectorstore

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestTextFromPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    string
	}{
		{name: "text key", payload: map[string]any{"text": "hello", "content": "ignored"}, want: "hello"},
		{name: "content fallback", payload: map[string]any{"text": "", "content": "body"}, want: "body"},
		{name: "stringified", payload: map[string]any{"title": "Analyst"}, want: `{"title":"Analyst"}`},
		{name: "empty", payload: nil, want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := TextFromPayload(tc.payload); got != tc.want {
				t.Fatalf("TextFromPayload = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical vectors: %v", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); math.Abs(got) > 1e-9 {
		t.Fatalf("orthogonal vectors: %v", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Fatalf("zero vector: %v", got)
	}
	if got := CosineSimilarity([]float32{1}, []float32{1, 1}); got != 0 {
		t.Fatalf("length mismatch: %v", got)
	}
}

func TestMemoryStoreSearchOrdersByCosine(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.EnsureCollection(ctx, "job_market", 2); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	// Idempotent.
	if err := s.EnsureCollection(ctx, "job_market", 2); err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if err := s.EnsureCollection(ctx, "job_market", 3); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}

	err := s.Upsert(ctx, "job_market", []Document{
		{ID: "a", Text: "east", Vector: []float32{1, 0}},
		{ID: "b", Text: "north", Vector: []float32{0, 1}},
		{ID: "c", Text: "north-east", Vector: []float32{1, 1}},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	matches, err := s.Search(ctx, "job_market", []float32{1, 0.1}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 2 || matches[0].ID != "a" || matches[1].ID != "c" {
		t.Fatalf("unexpected order: %+v", matches)
	}
	if matches[0].Score <= matches[1].Score {
		t.Fatalf("scores not descending: %v %v", matches[0].Score, matches[1].Score)
	}
}

func TestMemoryStoreErrors(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if _, err := s.Search(ctx, "missing", []float32{1}, 3); !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}
	if err := s.Upsert(ctx, "missing", nil); !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound on upsert, got %v", err)
	}
	_ = s.EnsureCollection(ctx, "c", 2)
	if err := s.Upsert(ctx, "c", []Document{{ID: "x", Vector: []float32{1}}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if err := s.Upsert(ctx, "c", []Document{{Vector: []float32{1, 2}}}); err == nil {
		t.Fatalf("expected missing id error")
	}
}
