package jobs

import "context"

// Repo persists job listings.
type Repo interface {
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, listings []Listing) (int, error)
	Get(ctx context.Context, id string) (Listing, error)
	List(ctx context.Context, f Filter) ([]Listing, error)
	Count(ctx context.Context) (int, error)
}
