package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Page bounds a list query. A non-positive Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

// repo holds the queries shared by DB and Tx.
type repo struct {
	ext sqlx.ExtContext
}

func (r repo) now() time.Time {
	return time.Now().UTC()
}

// pageClause renders LIMIT/OFFSET for p and appends its arguments.
func (r repo) pageClause(p Page, args []any) (string, []any) {
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	switch {
	case p.Limit > 0:
		return " LIMIT ? OFFSET ?", append(args, p.Limit, offset)
	case offset > 0 && r.ext.DriverName() == DriverSQLite:
		return " LIMIT -1 OFFSET ?", append(args, offset)
	case offset > 0:
		return " OFFSET ?", append(args, offset)
	default:
		return "", args
	}
}

// likeWhere builds "LOWER(a) LIKE ? ESCAPE '\' OR LOWER(b) LIKE ? ..." with one
// argument per column, all bound to the same pattern.
func likeWhere(cols []string, pattern string) (string, []any) {
	parts := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, c)
		args[i] = pattern
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns free text into a case-insensitive LIKE pattern that
// matches it as a literal substring.
func ContainsPattern(text string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(text)) + "%"
}
