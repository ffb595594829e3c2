package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type pgStore struct {
	DB    *sql.DB
	limit int
}

// NewPGStore constructs a Postgres-backed usage store. New users start with
// limit units per week.
func NewPGStore(db *sql.DB, limit int) *pgStore {
	if limit <= 0 {
		limit = defaultLimit
	}
	return &pgStore{DB: db, limit: limit}
}

func (s *pgStore) Get(ctx context.Context, userID string) (Usage, error) {
	return s.ensure(ctx, userID)
}

func (s *pgStore) EnsurePeriod(ctx context.Context, userID string) (Usage, error) {
	return s.ensure(ctx, userID)
}

func (s *pgStore) Consume(ctx context.Context, userID string, n int) (u Usage, err error) {
	if n <= 0 {
		return s.ensure(ctx, userID)
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	u, err = s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Usage{}, err
	}
	if !u.allows(n) {
		err = ErrLimitReached
		return Usage{}, err
	}
	u.Used += n
	if _, err = tx.ExecContext(ctx, `UPDATE usage SET used = $1 WHERE user_id = $2`, u.Used, userID); err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *pgStore) Reset(ctx context.Context, userID string) (Usage, error) {
	resetsAt := time.Now().UTC().Add(period)
	var u Usage
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO usage (user_id, plan, limit_amount, used, resets_at)
VALUES ($1, $2, $3, 0, $4)
ON CONFLICT (user_id) DO UPDATE SET used = 0, resets_at = EXCLUDED.resets_at
RETURNING plan, limit_amount, used, resets_at`, userID, defaultPlan, s.limit, resetsAt).
		Scan(&u.Plan, &u.Limit, &u.Used, &u.ResetsAt)
	if err != nil {
		return Usage{}, err
	}
	return u, nil
}

// Claim adds the guest's current-period consumption to the user's row and
// removes the guest row.
func (s *pgStore) Claim(ctx context.Context, guestUserID, authedUserID string) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var guestUsed int
	var guestResets time.Time
	err = tx.QueryRowContext(ctx, `
DELETE FROM usage WHERE user_id = $1 RETURNING used, resets_at`, guestUserID).Scan(&guestUsed, &guestResets)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return tx.Commit()
	}
	if err != nil {
		return err
	}

	u, err := s.lockAndEnsure(ctx, tx, authedUserID)
	if err != nil {
		return err
	}
	if time.Now().UTC().Before(guestResets) && guestUsed > 0 {
		if _, err = tx.ExecContext(ctx, `UPDATE usage SET used = $1 WHERE user_id = $2`, u.Used+guestUsed, authedUserID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *pgStore) ensure(ctx context.Context, userID string) (u Usage, err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	u, err = s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *pgStore) lockAndEnsure(ctx context.Context, tx *sql.Tx, userID string) (Usage, error) {
	var u Usage
	row := tx.QueryRowContext(ctx, `
SELECT plan, limit_amount, used, resets_at FROM usage WHERE user_id = $1 FOR UPDATE`, userID)
	err := row.Scan(&u.Plan, &u.Limit, &u.Used, &u.ResetsAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			u = defaultUsage(s.limit, time.Now().UTC())
			if _, err = tx.ExecContext(ctx, `
INSERT INTO usage (user_id, plan, limit_amount, used, resets_at) VALUES ($1, $2, $3, $4, $5)`,
				userID, u.Plan, u.Limit, u.Used, u.ResetsAt); err != nil {
				return Usage{}, err
			}
			return u, nil
		}
		return Usage{}, err
	}

	now := time.Now().UTC()
	if expired(u, now) {
		u.Used = 0
		u.ResetsAt = now.Add(period)
		if _, err = tx.ExecContext(ctx, `UPDATE usage SET used = $1, resets_at = $2 WHERE user_id = $3`, u.Used, u.ResetsAt, userID); err != nil {
			return Usage{}, err
		}
	}
	return u, nil
}
