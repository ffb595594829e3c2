package usage

import (
	"context"
	"fmt"
)

type store interface {
	Get(ctx context.Context, userID string) (Usage, error)
	EnsurePeriod(ctx context.Context, userID string) (Usage, error)
	Consume(ctx context.Context, userID string, n int) (Usage, error)
	Reset(ctx context.Context, userID string) (Usage, error)
	Claim(ctx context.Context, guestUserID, authedUserID string) error
}

// Service manages the weekly quota for LLM-heavy operations.
type Service struct {
	store store
}

// NewService constructs a Service with in-memory store and the given weekly
// limit.
func NewService(limit int) *Service {
	return &Service{store: newMemoryStore(limit)}
}

// NewPostgresService constructs a Service backed by Postgres.
func NewPostgresService(pgStore store) *Service {
	return &Service{store: pgStore}
}

// Get returns the current usage for a user, initializing defaults if absent.
func (s *Service) Get(ctx context.Context, userID string) (Usage, error) {
	return s.store.Get(ctx, userID)
}

// EnsurePeriod resets usage if the period has expired.
func (s *Service) EnsurePeriod(ctx context.Context, userID string) (Usage, error) {
	return s.store.EnsurePeriod(ctx, userID)
}

// CanConsume reports whether the user can consume n units.
func (s *Service) CanConsume(ctx context.Context, userID string, n int) (bool, Usage, error) {
	u, err := s.store.EnsurePeriod(ctx, userID)
	if err != nil {
		return false, Usage{}, err
	}
	return u.allows(n), u, nil
}

// Consume increments usage by n if within limit.
func (s *Service) Consume(ctx context.Context, userID string, n int) (Usage, error) {
	return s.store.Consume(ctx, userID, n)
}

// Reset sets usage to zero and resets the window.
func (s *Service) Reset(ctx context.Context, userID string) (Usage, error) {
	return s.store.Reset(ctx, userID)
}

// Claim folds a guest's consumption into the authenticated user's quota.
func (s *Service) Claim(ctx context.Context, guestUserID, authedUserID string) error {
	if guestUserID == "" || authedUserID == "" || guestUserID == authedUserID {
		return nil
	}
	if err := s.store.Claim(ctx, guestUserID, authedUserID); err != nil {
		return fmt.Errorf("claim usage: %w", err)
	}
	return nil
}

// Gate checks the quota before an operation and consumes one unit when it
// succeeds. A nil Service allows everything.
func (s *Service) Gate(ctx context.Context, userID string, op func() error) error {
	if s == nil {
		return op()
	}
	ok, _, err := s.CanConsume(ctx, userID, 1)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLimitReached
	}
	if err := op(); err != nil {
		return err
	}
	_, err = s.Consume(ctx, userID, 1)
	return err
}
