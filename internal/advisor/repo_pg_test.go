package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoGetByIDDecodesMatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "document_id", "status", "content", "matches", "model",
		"error_code", "error_message", "error_retryable", "created_at", "started_at", "completed_at",
	}).AddRow("r1", "u1", "d1", StatusCompleted, "Apply to Acme.", []byte(`[{"jobId":"j1","company":"Acme","score":0.8}]`), "gpt-4o-mini",
		nil, nil, nil, created, created, created)
	mock.ExpectQuery("SELECT .+ FROM advisor_reports WHERE id = \\$1").WithArgs("r1").WillReturnRows(rows)

	rep, err := (&PGRepo{DB: db}).GetByID(context.Background(), "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rep.Content != "Apply to Acme." || len(rep.Matches) != 1 || rep.Matches[0].Company != "Acme" {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if rep.CompletedAt == nil {
		t.Fatalf("expected completed_at")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoMarkProcessingSkipsFinishedReports(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE advisor_reports").
		WithArgs(StatusProcessing, sqlmock.AnyArg(), "r1", StatusQueued).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = (&PGRepo{DB: db}).MarkProcessing(context.Background(), "r1", time.Now())
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
