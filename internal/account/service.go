package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"career-hub/internal/shared/telemetry"
	"career-hub/internal/usage"
)

// Claimer moves rows owned by a guest identity to an authenticated user.
type Claimer interface {
	Claim(ctx context.Context, guestUserID, authedUserID string) (int, error)
}

// Service merges guest data into an account after login.
type Service struct {
	// DB, when set, claims every table in one transaction instead of going
	// through the per-package claimers.
	DB            *sql.DB
	Documents     Claimer
	Reports       Claimer
	Conversations Claimer
	Interviews    Claimer
	Usage         *usage.Service
}

type ClaimResult struct {
	MigratedDocuments     int `json:"migratedDocuments"`
	MigratedReports       int `json:"migratedReports"`
	MigratedConversations int `json:"migratedConversations"`
	MigratedInterviews    int `json:"migratedInterviews"`
}

func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	if strings.TrimSpace(guestUserID) == "" || strings.TrimSpace(authedUserID) == "" {
		return ClaimResult{}, errors.New("guestUserID and authedUserID are required")
	}

	var (
		result ClaimResult
		err    error
	)
	if s.DB != nil {
		result, err = claimWithTx(ctx, s.DB, guestUserID, authedUserID)
	} else {
		result, err = s.claimEach(ctx, guestUserID, authedUserID)
	}
	if err != nil {
		return ClaimResult{}, err
	}

	if s.Usage != nil {
		if err := s.Usage.Claim(ctx, guestUserID, authedUserID); err != nil {
			return ClaimResult{}, err
		}
	}

	telemetry.Info("account.claim", map[string]any{
		"request_id":    telemetry.RequestIDFrom(ctx),
		"user_id":       authedUserID,
		"documents":     result.MigratedDocuments,
		"reports":       result.MigratedReports,
		"conversations": result.MigratedConversations,
		"interviews":    result.MigratedInterviews,
	})
	return result, nil
}

func (s *Service) claimEach(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	var result ClaimResult
	targets := []struct {
		name    string
		claimer Claimer
		count   *int
	}{
		{"documents", s.Documents, &result.MigratedDocuments},
		{"reports", s.Reports, &result.MigratedReports},
		{"conversations", s.Conversations, &result.MigratedConversations},
		{"interviews", s.Interviews, &result.MigratedInterviews},
	}
	for _, t := range targets {
		if t.claimer == nil {
			continue
		}
		n, err := t.claimer.Claim(ctx, guestUserID, authedUserID)
		if err != nil {
			return ClaimResult{}, fmt.Errorf("claim %s: %w", t.name, err)
		}
		*t.count = n
	}
	return result, nil
}

func claimWithTx(ctx context.Context, db *sql.DB, guestUserID, authedUserID string) (ClaimResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return ClaimResult{}, err
	}
	defer tx.Rollback()

	var result ClaimResult
	statements := []struct {
		query string
		count *int
	}{
		{`UPDATE documents SET user_id = $1 WHERE user_id = $2 AND deleted_at IS NULL`, &result.MigratedDocuments},
		{`UPDATE advisor_reports SET user_id = $1 WHERE user_id = $2`, &result.MigratedReports},
		{`UPDATE conversations SET user_id = $1 WHERE user_id = $2`, &result.MigratedConversations},
		{`UPDATE interview_sessions SET user_id = $1 WHERE user_id = $2`, &result.MigratedInterviews},
	}
	for _, st := range statements {
		res, err := tx.ExecContext(ctx, st.query, authedUserID, guestUserID)
		if err != nil {
			return ClaimResult{}, err
		}
		n, _ := res.RowsAffected()
		*st.count = int(n)
	}

	if err := tx.Commit(); err != nil {
		return ClaimResult{}, err
	}
	return result, nil
}
