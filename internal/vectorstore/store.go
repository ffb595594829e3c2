// Package vectorstore indexes embedded documents for nearest-neighbour search
// by cosine distance.
package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrCollectionNotFound = errors.New("vector collection not found")
	ErrDimensionMismatch  = errors.New("vector dimension mismatch")
)

// Document is one embedded passage.
type Document struct {
	ID      string
	Text    string
	Payload map[string]any
	Vector  []float32
}

// Match is a search hit. Score is the cosine similarity (1 - distance).
type Match struct {
	Document
	Score float64
}

// Store is a collection-scoped vector index.
type Store interface {
	// EnsureCollection creates the collection when it does not exist.
	EnsureCollection(ctx context.Context, name string, dimensions int) error
	Upsert(ctx context.Context, collection string, docs []Document) error
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]Match, error)
}

// TextFromPayload picks the passage text stored with a vector: the "text" key,
// then "content", then the whole payload rendered as JSON.
func TextFromPayload(payload map[string]any) string {
	for _, key := range []string{"text", "content"} {
		if v, ok := payload[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	if len(payload) == 0 {
		return ""
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprint(payload)
	}
	return string(raw)
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either is a zero vector.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func validateDocs(docs []Document, dimensions int) error {
	for _, d := range docs {
		if strings.TrimSpace(d.ID) == "" {
			return errors.New("vector document id is required")
		}
		if dimensions > 0 && len(d.Vector) != dimensions {
			return fmt.Errorf("%w: document %s has %d dimensions, collection expects %d", ErrDimensionMismatch, d.ID, len(d.Vector), dimensions)
		}
	}
	return nil
}
