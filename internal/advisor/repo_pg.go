package advisor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const reportColumns = `id, user_id, document_id, status, content, matches, model, error_code, error_message, error_retryable, created_at, started_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (Report, error) {
	var rep Report
	var content, model, errCode, errMsg sql.NullString
	var matches []byte
	var retryable sql.NullBool
	var startedAt, completedAt sql.NullTime
	if err := row.Scan(
		&rep.ID,
		&rep.UserID,
		&rep.DocumentID,
		&rep.Status,
		&content,
		&matches,
		&model,
		&errCode,
		&errMsg,
		&retryable,
		&rep.CreatedAt,
		&startedAt,
		&completedAt,
	); err != nil {
		return Report{}, err
	}
	rep.Content = content.String
	rep.Model = model.String
	rep.ErrorCode = errCode.String
	rep.ErrorMessage = errMsg.String
	rep.ErrorRetryable = retryable.Bool
	if len(matches) > 0 {
		if err := json.Unmarshal(matches, &rep.Matches); err != nil {
			return Report{}, fmt.Errorf("decode matches: %w", err)
		}
	}
	if startedAt.Valid {
		rep.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		rep.CompletedAt = &completedAt.Time
	}
	return rep, nil
}

func (r *PGRepo) Create(ctx context.Context, report Report) error {
	const query = `
INSERT INTO advisor_reports (id, user_id, document_id, status, model, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.DB.ExecContext(ctx, query, report.ID, report.UserID, report.DocumentID, report.Status, report.Model, report.CreatedAt)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Report, error) {
	query := `SELECT ` + reportColumns + ` FROM advisor_reports WHERE id = $1`
	rep, err := scanReport(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Report{}, ErrNotFound
		}
		return Report{}, err
	}
	return rep, nil
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Report, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + reportColumns + `
FROM advisor_reports
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// MarkProcessing only moves queued reports, so a redelivered queue message
// does not restart finished work.
func (r *PGRepo) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	const query = `
UPDATE advisor_reports
SET status = $1, started_at = $2
WHERE id = $3 AND status IN ($4, $1)`
	res, err := r.DB.ExecContext(ctx, query, StatusProcessing, startedAt, id, StatusQueued)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyProcessed
	}
	return nil
}

func (r *PGRepo) Complete(ctx context.Context, id string, rec Recommendation, completedAt time.Time) error {
	matches, err := json.Marshal(rec.Matches)
	if err != nil {
		return fmt.Errorf("encode matches: %w", err)
	}
	const query = `
UPDATE advisor_reports
SET status = $1, content = $2, matches = $3, model = $4, completed_at = $5,
    error_code = NULL, error_message = NULL, error_retryable = NULL
WHERE id = $6`
	_, err = r.DB.ExecContext(ctx, query, StatusCompleted, rec.Content, matches, rec.Model, completedAt, id)
	return err
}

func (r *PGRepo) Fail(ctx context.Context, id, code, message string, retryable bool, completedAt time.Time) error {
	const query = `
UPDATE advisor_reports
SET status = $1, error_code = $2, error_message = $3, error_retryable = $4, completed_at = $5
WHERE id = $6`
	_, err := r.DB.ExecContext(ctx, query, StatusFailed, code, message, retryable, completedAt, id)
	return err
}

func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE advisor_reports SET user_id = $1 WHERE user_id = $2`, authedUserID, guestUserID)
	if err != nil {
		return 0, err
	}
	updated, _ := res.RowsAffected()
	return int(updated), nil
}

var _ Repo = (*PGRepo)(nil)
