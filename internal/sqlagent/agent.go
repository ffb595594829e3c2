// Package sqlagent answers natural-language questions by generating read-only
// SQL against the job listings database.
package sqlagent

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"career-hub/internal/llm"
	"career-hub/internal/shared/metrics"
	"career-hub/internal/shared/storage/db"
	"career-hub/internal/shared/telemetry"
)

const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultMaxRows     = 50
	DefaultMaxAttempts = 3
	sampleRows         = 3
	maxCellChars       = 200
	queryTimeout       = 15 * time.Second
)

// Agent runs the generate → guard → execute → answer loop.
type Agent struct {
	DB          *sql.DB
	Dialect     db.Dialect
	LLM         llm.ChatModel
	Model       string
	MaxRows     int
	MaxAttempts int
}

// NewAgent constructs an Agent with default limits.
func NewAgent(conn *sql.DB, dialect db.Dialect, model llm.ChatModel, modelName string) *Agent {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &Agent{
		DB:          conn,
		Dialect:     dialect,
		LLM:         model,
		Model:       modelName,
		MaxRows:     DefaultMaxRows,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Result is the outcome of one executed query.
type Result struct {
	SQL     string
	Columns []string
	Rows    [][]string
}

// Run answers question from the database. The returned error carries the last
// generation or execution failure once all attempts are used.
func (a *Agent) Run(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("question is empty")
	}
	schema, err := a.SchemaInfo(ctx)
	if err != nil {
		return "", err
	}

	attempts := a.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	var (
		feedback string
		lastErr  error
		res      Result
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err = a.attempt(ctx, schema, question, feedback)
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		if errors.Is(err, llm.ErrNotConfigured) || ctx.Err() != nil {
			break
		}
		telemetry.Warn("sql_agent.retry", map[string]any{
			"request_id": telemetry.RequestIDFrom(ctx),
			"attempt":    attempt,
			"sql":        res.SQL,
			"error":      err,
		})
		feedback = fmt.Sprintf("Your previous query failed.\nSQL: %s\nError: %s\nWrite a corrected query.", res.SQL, err.Error())
	}
	if lastErr != nil {
		metrics.IncAgentError("sql")
		return "", lastErr
	}

	telemetry.Info("sql_agent.query", map[string]any{
		"request_id": telemetry.RequestIDFrom(ctx),
		"sql":        telemetry.TruncateForLog(res.SQL, 500),
		"rows":       len(res.Rows),
	})

	prompt, err := llm.Render(llm.PromptSQLAnswer, map[string]string{
		"question":  question,
		"sql":       res.SQL,
		"row_count": strconv.Itoa(len(res.Rows)),
		"rows":      FormatRows(res.Columns, res.Rows),
	})
	if err != nil {
		return "", err
	}
	answer, err := llm.Complete(ctx, a.LLM, a.Model, llm.Temperature(0), "", prompt)
	if err != nil {
		metrics.IncAgentError("sql")
		return "", fmt.Errorf("phrase answer: %w", err)
	}
	return answer, nil
}

func (a *Agent) attempt(ctx context.Context, schema, question, feedback string) (Result, error) {
	prompt, err := llm.Render(llm.PromptSQLGenerate, map[string]string{
		"dialect":  a.dialectName(),
		"max_rows": strconv.Itoa(a.maxRows()),
		"schema":   schema,
		"question": question,
		"feedback": feedback,
	})
	if err != nil {
		return Result{}, err
	}
	raw, err := llm.Complete(ctx, a.LLM, a.Model, llm.Temperature(0), "", prompt)
	if err != nil {
		return Result{}, fmt.Errorf("generate sql: %w", err)
	}
	query, err := ValidateReadOnly(raw, a.maxRows())
	if err != nil {
		return Result{SQL: CleanSQL(raw)}, err
	}
	return a.Query(ctx, query)
}

// Query executes a guarded read-only query and returns at most MaxRows rows
// rendered as strings.
func (a *Agent) Query(ctx context.Context, query string) (Result, error) {
	query, err := ValidateReadOnly(query, a.maxRows())
	if err != nil {
		return Result{SQL: query}, err
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cols, data, err := a.readOnly(qctx, query)
	if err != nil {
		return Result{SQL: query}, err
	}
	return Result{SQL: query, Columns: cols, Rows: data}, nil
}

// readOnly executes query so that the database itself refuses writes: a
// READ ONLY transaction on Postgres, query_only on the SQLite connection.
func (a *Agent) readOnly(ctx context.Context, query string) ([]string, [][]string, error) {
	if a.Dialect == db.DialectPostgres {
		tx, err := a.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
		if err != nil {
			return nil, nil, fmt.Errorf("begin read-only transaction: %w", err)
		}
		defer tx.Rollback()
		rows, err := tx.QueryContext(ctx, query)
		if err != nil {
			return nil, nil, err
		}
		defer rows.Close()
		return readRows(rows, a.maxRows())
	}

	conn, err := a.DB.Conn(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return nil, nil, fmt.Errorf("enable query_only: %w", err)
	}
	// The jobs repo writes through the same pool, so the pragma must not
	// outlive this query. A connection that cannot be reset is discarded.
	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), "PRAGMA query_only = OFF"); err != nil {
			telemetry.Warn("sqlagent.query_only_reset_failed", map[string]any{"error": err})
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		}
	}()

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	return readRows(rows, a.maxRows())
}

// SchemaInfo describes every table with its columns and a few sample rows.
func (a *Agent) SchemaInfo(ctx context.Context) (string, error) {
	tables, err := a.tables(ctx)
	if err != nil {
		return "", err
	}
	if len(tables) == 0 {
		return "", errors.New("jobs database has no tables")
	}

	var b strings.Builder
	for i, table := range tables {
		if i > 0 {
			b.WriteString("\n\n")
		}
		cols, err := a.columns(ctx, table)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "CREATE TABLE %s (\n", table)
		for j, c := range cols {
			sep := ","
			if j == len(cols)-1 {
				sep = ""
			}
			fmt.Fprintf(&b, "\t%s%s\n", c, sep)
		}
		b.WriteString(")")

		rows, err := a.DB.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteIdent(table), sampleRows))
		if err != nil {
			return "", fmt.Errorf("sample rows from %s: %w", table, err)
		}
		names, sample, err := readRows(rows, sampleRows)
		rows.Close()
		if err != nil {
			return "", fmt.Errorf("sample rows from %s: %w", table, err)
		}
		fmt.Fprintf(&b, "\n\n/*\n%d rows from %s table:\n%s\n*/", len(sample), table, FormatRows(names, sample))
	}
	return b.String(), nil
}

// VerifyConnection pings the database and returns its table names.
func (a *Agent) VerifyConnection(ctx context.Context) ([]string, error) {
	if err := a.DB.PingContext(ctx); err != nil {
		telemetry.Error("sql_agent.connect.failed", map[string]any{"dialect": a.dialectName(), "error": err})
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	tables, err := a.tables(ctx)
	if err != nil {
		return nil, err
	}
	telemetry.Info("sql_agent.connected", map[string]any{"dialect": a.dialectName(), "tables": strings.Join(tables, ",")})
	return tables, nil
}

func (a *Agent) tables(ctx context.Context) ([]string, error) {
	query := `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	if a.Dialect == db.DialectPostgres {
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name`
	}
	rows, err := a.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		if name == "goose_db_version" {
			continue
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (a *Agent) columns(ctx context.Context, table string) ([]string, error) {
	if a.Dialect == db.DialectPostgres {
		rows, err := a.DB.QueryContext(ctx, `
			SELECT column_name, data_type, is_nullable
			FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1
			ORDER BY ordinal_position
		`, table)
		if err != nil {
			return nil, fmt.Errorf("describe %s: %w", table, err)
		}
		defer rows.Close()
		var out []string
		for rows.Next() {
			var name, typ, nullable string
			if err := rows.Scan(&name, &typ, &nullable); err != nil {
				return nil, fmt.Errorf("describe %s: %w", table, err)
			}
			col := name + " " + strings.ToUpper(typ)
			if nullable == "NO" {
				col += " NOT NULL"
			}
			out = append(out, col)
		}
		return out, rows.Err()
	}

	rows, err := a.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("describe %s: %w", table, err)
		}
		col := name + " " + typ
		if notNull == 1 {
			col += " NOT NULL"
		}
		if pk > 0 {
			col += " PRIMARY KEY"
		}
		out = append(out, col)
	}
	return out, rows.Err()
}

func readRows(rows *sql.Rows, limit int) ([]string, [][]string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

func formatValue(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		s = string(t)
	case time.Time:
		s = t.Format(time.RFC3339)
	default:
		s = fmt.Sprint(t)
	}
	return telemetry.TruncateForLog(strings.ReplaceAll(s, "\n", " "), maxCellChars)
}

// FormatRows renders rows as tab-separated lines under a header.
func FormatRows(columns []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(columns, "\t"))
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(strings.Join(r, "\t"))
	}
	return b.String()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (a *Agent) maxRows() int {
	if a.MaxRows <= 0 {
		return DefaultMaxRows
	}
	return a.MaxRows
}

func (a *Agent) dialectName() string {
	if a.Dialect == db.DialectPostgres {
		return "PostgreSQL"
	}
	return "SQLite"
}
