package sqlite

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/myk-org/prreview/internal/domain/model"
)

// ErrUnsafeQuery is returned when a statement fails read-only validation.
// Rejected statements never reach the database engine.
var ErrUnsafeQuery = errors.New("unsafe query")

// readOnlyKeywords are the statement-leading keywords the query interface
// accepts.
var readOnlyKeywords = map[string]bool{
	"select":  true,
	"with":    true,
	"explain": true,
}

// blockedKeywords are mutating or schema-touching keywords rejected anywhere
// in a statement, after string literals and comments are stripped.
var blockedKeywords = []string{
	"insert", "update", "delete", "replace", "drop", "alter", "create",
	"truncate", "attach", "detach", "vacuum", "reindex", "pragma",
}

var wordPattern = regexp.MustCompile(`[a-z_]+`)

// Query validates the statement as single and read-only, then executes it on
// the reader connection.
func (r *HistoryRepo) Query(ctx context.Context, query string) (*model.QueryResult, error) {
	if err := ValidateReadOnly(query); err != nil {
		return nil, err
	}

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	result := &model.QueryResult{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan query row: %w", err)
		}

		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query rows: %w", err)
	}

	return result, nil
}

// ValidateReadOnly rejects anything but a single read-only SQL statement.
// String literals, quoted identifiers, and comments are stripped before
// inspection so keywords hiding inside them neither trip nor dodge the check.
func ValidateReadOnly(query string) error {
	stripped := strings.ToLower(stripLiteralsAndComments(query))

	trimmed := strings.TrimSpace(stripped)
	if trimmed == "" {
		return fmt.Errorf("%w: empty statement", ErrUnsafeQuery)
	}

	if i := strings.Index(trimmed, ";"); i >= 0 && strings.TrimSpace(trimmed[i+1:]) != "" {
		return fmt.Errorf("%w: multiple statements are not allowed", ErrUnsafeQuery)
	}

	first := wordPattern.FindString(trimmed)
	if !readOnlyKeywords[first] {
		return fmt.Errorf("%w: statement must start with SELECT, WITH, or EXPLAIN", ErrUnsafeQuery)
	}

	words := map[string]bool{}
	for _, w := range wordPattern.FindAllString(trimmed, -1) {
		words[w] = true
	}
	for _, blocked := range blockedKeywords {
		if words[blocked] {
			return fmt.Errorf("%w: statement contains blocked keyword %q", ErrUnsafeQuery, strings.ToUpper(blocked))
		}
	}

	return nil
}

// stripLiteralsAndComments removes '...' and "..." spans (with doubled-quote
// escapes), -- line comments, and /* */ block comments, replacing each with a
// single space.
func stripLiteralsAndComments(query string) string {
	var out strings.Builder
	i := 0
	n := len(query)

	for i < n {
		switch {
		case query[i] == '\'' || query[i] == '"':
			quote := query[i]
			i++
			for i < n {
				if query[i] == quote {
					if i+1 < n && query[i+1] == quote {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			out.WriteByte(' ')

		case query[i] == '-' && i+1 < n && query[i+1] == '-':
			for i < n && query[i] != '\n' {
				i++
			}
			out.WriteByte(' ')

		case query[i] == '/' && i+1 < n && query[i+1] == '*':
			i += 2
			for i+1 < n && !(query[i] == '*' && query[i+1] == '/') {
				i++
			}
			if i+1 < n {
				i += 2
			} else {
				i = n
			}
			out.WriteByte(' ')

		default:
			out.WriteByte(query[i])
			i++
		}
	}

	return out.String()
}
