package users

import "context"

type Repo interface {
	// Upsert inserts the user or refreshes the profile fields of an existing
	// row. CreatedAt of an existing row is kept.
	Upsert(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
}
