package users

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := &PGRepo{DB: db}

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	login := created.Add(time.Hour)
	cols := []string{"id", "provider", "email", "full_name", "given_name", "family_name", "picture_url", "last_login_at", "created_at", "updated_at"}

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("google:1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("google:1", "google", "ana@example.com", "Ana Lim", nil, nil, nil, login, created, created))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("google:2").
		WillReturnRows(sqlmock.NewRows(cols))

	user, err := repo.GetByID(context.Background(), "google:1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if user.FullName != "Ana Lim" || user.GivenName != "" || user.LastLoginAt == nil || !user.LastLoginAt.Equal(login) {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err := repo.GetByID(context.Background(), "google:2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestServiceUpsertFromAuth(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := &Service{Repo: NewMemoryRepo(), Now: func() time.Time { return now }}
	ctx := context.Background()

	tests := []struct {
		name    string
		user    User
		wantErr bool
	}{
		{name: "google login", user: User{ID: "google:1", Email: "ana@example.com"}},
		{name: "missing email", user: User{ID: "google:2"}, wantErr: true},
		{name: "no provider prefix", user: User{ID: "plain", Email: "x@example.com"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.UpsertFromAuth(ctx, tt.user)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("upsert: %v", err)
			}
			got, err := svc.GetByID(ctx, tt.user.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Provider != "google" || got.LastLoginAt == nil || !got.LastLoginAt.Equal(now) {
				t.Fatalf("unexpected user %+v", got)
			}
		})
	}
}
