package advisor

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores reports in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Report
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Report)}
}

func (r *MemoryRepo) Create(ctx context.Context, report Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[report.ID] = report
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.byID[id]
	if !ok {
		return Report{}, ErrNotFound
	}
	return report, nil
}

// ListByUser returns reports newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []Report
	for _, report := range r.byID {
		if report.UserID == userID {
			out = append(out, report)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []Report{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) update(ctx context.Context, id string, fn func(*Report) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if err := fn(&report); err != nil {
		return err
	}
	r.byID[id] = report
	return nil
}

func (r *MemoryRepo) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	return r.update(ctx, id, func(rep *Report) error {
		if rep.Status != StatusQueued && rep.Status != StatusProcessing {
			return ErrAlreadyProcessed
		}
		rep.Status = StatusProcessing
		rep.StartedAt = &startedAt
		return nil
	})
}

func (r *MemoryRepo) Complete(ctx context.Context, id string, rec Recommendation, completedAt time.Time) error {
	return r.update(ctx, id, func(rep *Report) error {
		rep.Status = StatusCompleted
		rep.Content = rec.Content
		rep.Matches = rec.Matches
		rep.Model = rec.Model
		rep.CompletedAt = &completedAt
		return nil
	})
}

func (r *MemoryRepo) Fail(ctx context.Context, id, code, message string, retryable bool, completedAt time.Time) error {
	return r.update(ctx, id, func(rep *Report) error {
		rep.Status = StatusFailed
		rep.ErrorCode = code
		rep.ErrorMessage = message
		rep.ErrorRetryable = retryable
		rep.CompletedAt = &completedAt
		return nil
	})
}

func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, report := range r.byID {
		if report.UserID == guestUserID {
			report.UserID = authedUserID
			r.byID[id] = report
			n++
		}
	}
	return n, nil
}

var _ Repo = (*MemoryRepo)(nil)
