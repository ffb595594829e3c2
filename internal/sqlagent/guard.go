package sqlagent

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnsafeQuery is returned for generated SQL that is not a single read-only
// statement.
var ErrUnsafeQuery = errors.New("unsafe query")

var (
	fencePattern     = regexp.MustCompile("(?s)```(?:sql|SQL)?\\s*(.*?)```")
	forbiddenPattern = regexp.MustCompile(`\b(INSERT|UPDATE|DELETE|DROP|ALTER|CREATE|INTO|PRAGMA|ATTACH|DETACH|TRUNCATE|GRANT|REVOKE|VACUUM|REINDEX|COPY|MERGE|UPSERT)\b`)
	limitPattern     = regexp.MustCompile(`\bLIMIT\b`)
)

// forbiddenCallPattern matches functions with side effects on the server or
// the session.
var forbiddenCallPattern = regexp.MustCompile(`\b(NEXTVAL|SETVAL|SET_CONFIG|PG_SLEEP\w*|PG_TERMINATE_BACKEND|PG_CANCEL_BACKEND|PG_ADVISORY_\w+|PG_READ_\w+|PG_LS_DIR|LO_\w+|DBLINK\w*|LOAD_EXTENSION|WRITEFILE|READFILE)\s*\(`)

// CleanSQL strips markdown fences, a leading "SQLQuery:" label and trailing
// semicolons from model output.
func CleanSQL(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"SQLQuery:", "SQL:", "sql:"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
	}
	for strings.HasSuffix(s, ";") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	}
	return s
}

// ValidateReadOnly checks that query is one SELECT/WITH statement without
// write or administrative keywords, and appends LIMIT maxRows when the query
// has none.
func ValidateReadOnly(query string, maxRows int) (string, error) {
	q := CleanSQL(query)
	if q == "" {
		return "", fmt.Errorf("%w: empty query", ErrUnsafeQuery)
	}
	bare := strings.ToUpper(stripLiterals(q))

	if strings.Contains(bare, ";") {
		return "", fmt.Errorf("%w: multiple statements are not allowed", ErrUnsafeQuery)
	}
	fields := strings.Fields(bare)
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: empty query", ErrUnsafeQuery)
	}
	first := strings.TrimLeft(fields[0], "(")
	if first != "SELECT" && first != "WITH" {
		return "", fmt.Errorf("%w: only SELECT or WITH queries are allowed", ErrUnsafeQuery)
	}
	if kw := forbiddenPattern.FindString(bare); kw != "" {
		return "", fmt.Errorf("%w: %s is not allowed", ErrUnsafeQuery, kw)
	}
	if fn := forbiddenCallPattern.FindStringSubmatch(bare); fn != nil {
		return "", fmt.Errorf("%w: function %s is not allowed", ErrUnsafeQuery, strings.ToLower(fn[1]))
	}
	if maxRows > 0 && !limitPattern.MatchString(bare) {
		q += " LIMIT " + strconv.Itoa(maxRows)
	}
	return q, nil
}

// stripLiterals blanks out quoted strings, quoted identifiers and comments so
// keyword checks only see SQL structure.
func stripLiterals(q string) string {
	var b strings.Builder
	b.Grow(len(q))
	for i := 0; i < len(q); i++ {
		c := q[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := i + 1
			for end < len(q) {
				if q[end] == c {
					if end+1 < len(q) && q[end+1] == c {
						end += 2
						continue
					}
					break
				}
				end++
			}
			b.WriteString(" '' ")
			i = end
		case c == '-' && i+1 < len(q) && q[i+1] == '-':
			for i < len(q) && q[i] != '\n' {
				i++
			}
			b.WriteByte(' ')
		case c == '/' && i+1 < len(q) && q[i+1] == '*':
			end := strings.Index(q[i+2:], "*/")
			if end < 0 {
				i = len(q)
			} else {
				i += end + 3
			}
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// FormatError renders an agent failure the way it is shown to users.
func FormatError(err error) string {
	return "Error executing query: " + err.Error()
}
