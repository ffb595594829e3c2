package interview

import "context"

// Repo persists interview sessions.
type Repo interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Update(ctx context.Context, s Session) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Session, error)
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}
