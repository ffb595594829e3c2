package conversations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, conv Conversation) error {
	const query = `
INSERT INTO conversations (id, user_id, title, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.DB.ExecContext(ctx, query, conv.ID, conv.UserID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	return err
}

func (r *PGRepo) Get(ctx context.Context, userID, id string) (Conversation, error) {
	const query = `
SELECT id, user_id, title, created_at, updated_at
FROM conversations
WHERE user_id = $1 AND id = $2`
	var conv Conversation
	err := r.DB.QueryRowContext(ctx, query, userID, id).Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, err
	}
	return conv, nil
}

func (r *PGRepo) List(ctx context.Context, userID string, limit, offset int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT id, user_id, title, created_at, updated_at
FROM conversations
WHERE user_id = $1
ORDER BY updated_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Conversation{}
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

func (r *PGRepo) AppendMessages(ctx context.Context, conv Conversation, msgs ...Message) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const touch = `
UPDATE conversations
SET updated_at = $1, title = CASE WHEN title = '' THEN $2 ELSE title END
WHERE id = $3`
	res, err := tx.ExecContext(ctx, touch, conv.UpdatedAt, conv.Title, conv.ID)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	const insert = `
INSERT INTO conversation_messages (id, conversation_id, role, content, route, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	for _, m := range msgs {
		var route sql.NullString
		if m.Route != "" {
			route = sql.NullString{String: m.Route, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, insert, m.ID, conv.ID, m.Role, m.Content, route, m.CreatedAt); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}
	return tx.Commit()
}

func (r *PGRepo) Messages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 200
	}
	const query = `
SELECT id, conversation_id, role, content, route, created_at FROM (
    SELECT id, conversation_id, role, content, route, created_at
    FROM conversation_messages
    WHERE conversation_id = $1
    ORDER BY created_at DESC, id DESC
    LIMIT $2
) recent
ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		var route sql.NullString
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &route, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Route = route.String
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes the conversation; messages cascade.
func (r *PGRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM conversations WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE conversations SET user_id = $1 WHERE user_id = $2`, authedUserID, guestUserID)
	if err != nil {
		return 0, err
	}
	updated, _ := res.RowsAffected()
	return int(updated), nil
}

var _ Repo = (*PGRepo)(nil)
