package sqlagent

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"career-hub/internal/jobs"
	"career-hub/internal/llm/llmtest"
	"career-hub/internal/shared/storage/db"
)

func newTestAgent(t *testing.T, chat *llmtest.Chat) *Agent {
	t.Helper()
	ctx := context.Background()
	conn, dialect, err := db.OpenJobsDB(ctx, db.JobsConfig{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "jobs.db"),
	}, db.DefaultServerOptions())
	if err != nil {
		t.Fatalf("open jobs db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	repo := jobs.NewSQLRepo(conn, dialect)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if _, err := repo.Upsert(ctx, []jobs.Listing{
		{ID: "1", Title: "Data Analyst", Company: "Acme", Location: "Jakarta"},
		{ID: "2", Title: "Go Engineer", Company: "Globex", Location: "Bandung"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewAgent(conn, dialect, chat, "")
}

func TestSchemaInfo(t *testing.T) {
	agent := newTestAgent(t, llmtest.NewChat())
	info, err := agent.SchemaInfo(context.Background())
	if err != nil {
		t.Fatalf("SchemaInfo: %v", err)
	}
	for _, want := range []string{"CREATE TABLE jobs (", "id TEXT PRIMARY KEY", "title TEXT NOT NULL", "2 rows from jobs table:", "Data Analyst"} {
		if !strings.Contains(info, want) {
			t.Fatalf("schema info missing %q:\n%s", want, info)
		}
	}
}

func TestVerifyConnection(t *testing.T) {
	agent := newTestAgent(t, llmtest.NewChat())
	tables, err := agent.VerifyConnection(context.Background())
	if err != nil {
		t.Fatalf("VerifyConnection: %v", err)
	}
	if len(tables) != 1 || tables[0] != "jobs" {
		t.Fatalf("unexpected tables: %v", tables)
	}
}

func TestRunAnswersFromRows(t *testing.T) {
	chat := llmtest.NewChat("```sql\nSELECT COUNT(*) AS total FROM jobs;\n```", "There are 2 jobs.")
	agent := newTestAgent(t, chat)

	got, err := agent.Run(context.Background(), "How many jobs are there?")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "There are 2 jobs." {
		t.Fatalf("unexpected answer %q", got)
	}
	if chat.Calls() != 2 {
		t.Fatalf("expected 2 llm calls, got %d", chat.Calls())
	}
	gen := chat.Requests[0]
	if gen.Model != DefaultModel || gen.Temperature == nil || *gen.Temperature != 0 {
		t.Fatalf("unexpected generation settings: %+v", gen)
	}
	if !strings.Contains(gen.Messages[0].Content, "CREATE TABLE jobs") {
		t.Fatalf("expected schema in generation prompt")
	}
	answerPrompt := chat.LastUserMessage()
	if !strings.Contains(answerPrompt, "SELECT COUNT(*) AS total FROM jobs LIMIT 50") || !strings.Contains(answerPrompt, "total\n2") {
		t.Fatalf("unexpected answer prompt:\n%s", answerPrompt)
	}
}

func TestRunFeedsErrorsBack(t *testing.T) {
	chat := llmtest.NewChat(
		"DELETE FROM jobs",
		"SELECT title FROM jobs ORDER BY title",
		"Data Analyst and Go Engineer.",
	)
	agent := newTestAgent(t, chat)

	got, err := agent.Run(context.Background(), "List the jobs")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "Data Analyst and Go Engineer." {
		t.Fatalf("unexpected answer %q", got)
	}
	retryPrompt := chat.Requests[1].Messages[0].Content
	if !strings.Contains(retryPrompt, "Your previous query failed.") || !strings.Contains(retryPrompt, "DELETE FROM jobs") {
		t.Fatalf("expected feedback in retry prompt:\n%s", retryPrompt)
	}

	// The delete never ran.
	count, err := jobs.NewSQLRepo(agent.DB, agent.Dialect).Count(context.Background())
	if err != nil || count != 2 {
		t.Fatalf("expected 2 rows to survive, got %d (%v)", count, err)
	}
}

func TestRunGivesUpAfterMaxAttempts(t *testing.T) {
	chat := llmtest.NewChat(
		"SELECT nope FROM missing_table",
		"SELECT nope FROM missing_table",
		"SELECT nope FROM missing_table",
	)
	agent := newTestAgent(t, chat)

	_, err := agent.Run(context.Background(), "?")
	if err == nil {
		t.Fatalf("expected error")
	}
	if chat.Calls() != DefaultMaxAttempts {
		t.Fatalf("expected %d attempts, got %d", DefaultMaxAttempts, chat.Calls())
	}
	if !strings.HasPrefix(FormatError(err), "Error executing query: ") || !strings.Contains(err.Error(), "missing_table") {
		t.Fatalf("unexpected error text: %v", err)
	}
}

func TestQueryCapsRows(t *testing.T) {
	agent := newTestAgent(t, llmtest.NewChat())
	agent.MaxRows = 1
	res, err := agent.Query(context.Background(), "SELECT id FROM jobs ORDER BY id")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Rows) != 1 || res.SQL != "SELECT id FROM jobs ORDER BY id LIMIT 1" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestReadOnlyRefusesWritesOnSQLite(t *testing.T) {
	agent := newTestAgent(t, llmtest.NewChat())
	ctx := context.Background()

	if _, _, err := agent.readOnly(ctx, "DELETE FROM jobs"); err == nil {
		t.Fatalf("expected the database to refuse a write")
	}

	var n int
	if err := agent.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows were deleted: %d left", n)
	}

	// The shared connection must accept writes again afterwards.
	if _, err := agent.DB.ExecContext(ctx, "UPDATE jobs SET company = 'Initech' WHERE id = '1'"); err != nil {
		t.Fatalf("write after read-only query: %v", err)
	}
}

func TestQueryUsesReadOnlyTransactionOnPostgres(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()
	agent := NewAgent(conn, db.DialectPostgres, llmtest.NewChat(), "")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT title FROM jobs LIMIT 50")).
		WillReturnRows(sqlmock.NewRows([]string{"title"}).AddRow("Go Engineer"))
	mock.ExpectRollback()

	res, err := agent.Query(context.Background(), "SELECT title FROM jobs")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0][0] != "Go Engineer" {
		t.Fatalf("unexpected result %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
