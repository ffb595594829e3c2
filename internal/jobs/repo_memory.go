package jobs

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo keeps listings in memory.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Listing
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Listing)}
}

func (r *MemoryRepo) EnsureSchema(ctx context.Context) error { return ctx.Err() }

func (r *MemoryRepo) Upsert(ctx context.Context, listings []Listing) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range listings {
		l := listings[i]
		if err := l.Normalize(); err != nil {
			return 0, err
		}
		r.data[l.ID] = l
	}
	return len(listings), nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Listing, error) {
	if err := ctx.Err(); err != nil {
		return Listing{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.data[id]
	if !ok {
		return Listing{}, ErrNotFound
	}
	return l, nil
}

func (r *MemoryRepo) List(ctx context.Context, f Filter) ([]Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kw := strings.ToLower(strings.TrimSpace(f.Keyword))
	loc := strings.ToLower(strings.TrimSpace(f.Location))

	r.mu.RLock()
	out := make([]Listing, 0, len(r.data))
	for _, l := range r.data {
		if kw != "" && !containsFold(kw, l.Title, l.Company, strings.Join(l.Skills, ", "), l.Description) {
			continue
		}
		if loc != "" && !containsFold(loc, l.Location) {
			continue
		}
		out = append(out, l)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		pi, pj := out[i].PostedAt, out[j].PostedAt
		if pi != nil && pj != nil && !pi.Equal(*pj) {
			return pi.After(*pj)
		}
		if (pi == nil) != (pj == nil) {
			return pi != nil
		}
		return out[i].Title < out[j].Title
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepo) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data), nil
}

func containsFold(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

var _ Repo = (*MemoryRepo)(nil)
