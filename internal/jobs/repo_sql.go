package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"career-hub/internal/shared/storage/db"
)

const schemaDDL = `CREATE TABLE IF NOT EXISTS jobs (
	id              TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	company         TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT '',
	employment_type TEXT NOT NULL DEFAULT '',
	salary_min      BIGINT,
	salary_max      BIGINT,
	currency        TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	skills          TEXT NOT NULL DEFAULT '',
	url             TEXT NOT NULL DEFAULT '',
	posted_at       TEXT
)`

const selectColumns = `id, title, company, location, employment_type, salary_min, salary_max, currency, description, skills, url, posted_at`

// SQLRepo stores listings in the jobs database (SQLite or Postgres).
type SQLRepo struct {
	db      *sql.DB
	dialect db.Dialect
}

// NewSQLRepo constructs a SQLRepo.
func NewSQLRepo(conn *sql.DB, dialect db.Dialect) *SQLRepo {
	return &SQLRepo{db: conn, dialect: dialect}
}

// EnsureSchema creates the jobs table when missing.
func (r *SQLRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("creating jobs table: %w", err)
	}
	return nil
}

// Upsert inserts or replaces listings by ID inside one transaction.
func (r *SQLRepo) Upsert(ctx context.Context, listings []Listing) (int, error) {
	if len(listings) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin jobs upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, r.dialect.Rebind(`
		INSERT INTO jobs (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			company = excluded.company,
			location = excluded.location,
			employment_type = excluded.employment_type,
			salary_min = excluded.salary_min,
			salary_max = excluded.salary_max,
			currency = excluded.currency,
			description = excluded.description,
			skills = excluded.skills,
			url = excluded.url,
			posted_at = excluded.posted_at
	`))
	if err != nil {
		return 0, fmt.Errorf("prepare jobs upsert: %w", err)
	}
	defer stmt.Close()

	for i := range listings {
		l := listings[i]
		if err := l.Normalize(); err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx,
			l.ID, l.Title, l.Company, l.Location, l.EmploymentType,
			nullInt(l.SalaryMin), nullInt(l.SalaryMax), l.Currency,
			l.Description, strings.Join(l.Skills, ", "), l.URL, nullTime(l.PostedAt),
		); err != nil {
			return 0, fmt.Errorf("upsert job %s: %w", l.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit jobs upsert: %w", err)
	}
	return len(listings), nil
}

// Get returns one listing.
func (r *SQLRepo) Get(ctx context.Context, id string) (Listing, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT `+selectColumns+` FROM jobs WHERE id = ?`), id)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Listing{}, ErrNotFound
	}
	if err != nil {
		return Listing{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return l, nil
}

// List returns listings matching f ordered by posting date, newest first.
func (r *SQLRepo) List(ctx context.Context, f Filter) ([]Listing, error) {
	var (
		where []string
		args  []any
	)
	if kw := strings.ToLower(strings.TrimSpace(f.Keyword)); kw != "" {
		like := "%" + kw + "%"
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(company) LIKE ? OR LOWER(skills) LIKE ? OR LOWER(description) LIKE ?)")
		args = append(args, like, like, like, like)
	}
	if loc := strings.ToLower(strings.TrimSpace(f.Location)); loc != "" {
		where = append(where, "LOWER(location) LIKE ?")
		args = append(args, "%"+loc+"%")
	}

	query := `SELECT ` + selectColumns + ` FROM jobs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY (posted_at IS NULL), posted_at DESC, title ASC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Count returns the number of listings.
func (r *SQLRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanListing(s scanner) (Listing, error) {
	var (
		l                    Listing
		salaryMin, salaryMax sql.NullInt64
		skills               string
		postedAt             sql.NullString
	)
	if err := s.Scan(&l.ID, &l.Title, &l.Company, &l.Location, &l.EmploymentType,
		&salaryMin, &salaryMax, &l.Currency, &l.Description, &skills, &l.URL, &postedAt); err != nil {
		return Listing{}, err
	}
	if salaryMin.Valid {
		v := salaryMin.Int64
		l.SalaryMin = &v
	}
	if salaryMax.Valid {
		v := salaryMax.Int64
		l.SalaryMax = &v
	}
	l.Skills = SplitSkills(skills)
	if postedAt.Valid {
		if t, ok := ParseDate(postedAt.String); ok {
			l.PostedAt = &t
		}
	}
	return l, nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format("2006-01-02"), Valid: true}
}

var _ Repo = (*SQLRepo)(nil)
