package advisor

import (
	"context"
	"time"
)

// Repo defines persistence operations for reports.
type Repo interface {
	Create(ctx context.Context, report Report) error
	// GetByID loads a report regardless of owner; the worker uses it.
	GetByID(ctx context.Context, id string) (Report, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Report, error)
	MarkProcessing(ctx context.Context, id string, startedAt time.Time) error
	Complete(ctx context.Context, id string, rec Recommendation, completedAt time.Time) error
	Fail(ctx context.Context, id, code, message string, retryable bool, completedAt time.Time) error
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}
