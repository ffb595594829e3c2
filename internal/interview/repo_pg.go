package interview

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const sessionColumns = `id, user_id, job_description, cv_text, status, transcript, last_audio_hash, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var s Session
	var transcript []byte
	var audioHash sql.NullString
	if err := row.Scan(&s.ID, &s.UserID, &s.JobDescription, &s.CVText, &s.Status, &transcript, &audioHash, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return Session{}, err
	}
	if len(transcript) > 0 {
		if err := json.Unmarshal(transcript, &s.Transcript); err != nil {
			return Session{}, fmt.Errorf("decode transcript: %w", err)
		}
	}
	s.LastAudioHash = audioHash.String
	return s, nil
}

func (r *PGRepo) Create(ctx context.Context, s Session) error {
	transcript, err := json.Marshal(s.Transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	const query = `
INSERT INTO interview_sessions (id, user_id, job_description, cv_text, status, transcript, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = r.DB.ExecContext(ctx, query, s.ID, s.UserID, s.JobDescription, s.CVText, s.Status, transcript, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM interview_sessions WHERE id = $1`
	s, err := scanSession(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return s, nil
}

func (r *PGRepo) Update(ctx context.Context, s Session) error {
	transcript, err := json.Marshal(s.Transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	const query = `
UPDATE interview_sessions
SET status = $1, transcript = $2, last_audio_hash = NULLIF($3, ''), updated_at = $4
WHERE id = $5`
	res, err := r.DB.ExecContext(ctx, query, s.Status, transcript, s.LastAudioHash, s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + sessionColumns + `
FROM interview_sessions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE interview_sessions SET user_id = $1 WHERE user_id = $2`, authedUserID, guestUserID)
	if err != nil {
		return 0, err
	}
	updated, _ := res.RowsAffected()
	return int(updated), nil
}

var _ Repo = (*PGRepo)(nil)
