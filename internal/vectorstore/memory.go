package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type memoryCollection struct {
	dimensions int
	docs       map[string]Document
}

// MemoryStore is an in-process Store with brute-force cosine search.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) EnsureCollection(ctx context.Context, name string, dimensions int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.collections[name]; ok {
		if existing.dimensions != dimensions {
			return fmt.Errorf("%w: collection %s has %d dimensions", ErrDimensionMismatch, name, existing.dimensions)
		}
		return nil
	}
	s.collections[name] = &memoryCollection{dimensions: dimensions, docs: make(map[string]Document)}
	return nil
}

func (s *MemoryStore) Upsert(ctx context.Context, collection string, docs []Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if err := validateDocs(docs, c.dimensions); err != nil {
		return err
	}
	for _, d := range docs {
		c.docs[d.ID] = d
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, collection string, vector []float32, limit int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if len(vector) != c.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection expects %d", ErrDimensionMismatch, len(vector), c.dimensions)
	}

	matches := make([]Match, 0, len(c.docs))
	for _, d := range c.docs {
		matches = append(matches, Match{Document: d, Score: CosineSimilarity(vector, d.Vector)})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

var _ Store = (*MemoryStore)(nil)
