package sqlagent

import (
	"errors"
	"testing"
)

func TestValidateReadOnly(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "adds limit", in: "SELECT title FROM jobs", want: "SELECT title FROM jobs LIMIT 50"},
		{name: "keeps limit", in: "select title from jobs limit 5", want: "select title from jobs limit 5"},
		{name: "strips fence and semicolon", in: "```sql\nSELECT COUNT(*) FROM jobs;\n```", want: "SELECT COUNT(*) FROM jobs LIMIT 50"},
		{name: "strips label", in: "SQLQuery: SELECT 1", want: "SELECT 1 LIMIT 50"},
		{name: "with clause", in: "WITH t AS (SELECT 1 AS x) SELECT x FROM t", want: "WITH t AS (SELECT 1 AS x) SELECT x FROM t LIMIT 50"},
		{name: "keyword inside literal", in: "SELECT title FROM jobs WHERE description LIKE '%delete old data%'", want: "SELECT title FROM jobs WHERE description LIKE '%delete old data%' LIMIT 50"},
		{name: "column names containing keywords", in: "SELECT created_at, updated_at FROM jobs", want: "SELECT created_at, updated_at FROM jobs LIMIT 50"},
		{name: "delete", in: "DELETE FROM jobs", wantErr: true},
		{name: "pragma", in: "PRAGMA table_info(jobs)", wantErr: true},
		{name: "stacked statements", in: "SELECT 1; DROP TABLE jobs", wantErr: true},
		{name: "cte with write", in: "WITH x AS (DELETE FROM jobs RETURNING *) SELECT * FROM x", wantErr: true},
		{name: "attach", in: "SELECT 1 FROM jobs; ATTACH DATABASE 'x' AS y", wantErr: true},
		{name: "empty", in: "  ", wantErr: true},
		{name: "select into creates a table", in: "SELECT * INTO stolen FROM jobs", wantErr: true},
		{name: "sequence advance", in: "SELECT nextval('jobs_id_seq')", wantErr: true},
		{name: "session setting change", in: "SELECT set_config('default_transaction_read_only', 'off', false)", wantErr: true},
		{name: "sleep", in: "SELECT pg_sleep (30)", wantErr: true},
		{name: "into inside literal is fine", in: "SELECT title FROM jobs WHERE title = 'Into Data'", want: "SELECT title FROM jobs WHERE title = 'Into Data' LIMIT 50"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateReadOnly(tc.in, 50)
			if tc.wantErr {
				if !errors.Is(err, ErrUnsafeQuery) {
					t.Fatalf("expected ErrUnsafeQuery, got %v (query %q)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFormatError(t *testing.T) {
	if got := FormatError(errors.New("no such table: foo")); got != "Error executing query: no such table: foo" {
		t.Fatalf("unexpected %q", got)
	}
}
