package database

import (
	"fmt"
	"strings"

	"github.com/koustreak/rowmodel/internal/errs"
)

// Dialect controls which SQL placeholder style the query builder emits.
type Dialect int

const (
	// DialectPostgres uses $1, $2, … placeholders.
	DialectPostgres Dialect = iota

	// DialectMySQL uses ? placeholders.
	DialectMySQL
)

// SelectBuilder constructs a parameterized SELECT query using a fluent API.
// Values are never interpolated into the SQL string — always passed as args.
//
// Usage (Postgres):
//
//	sql, args, err := Select("users", DialectPostgres).
//	    Columns("id", "name", "created").
//	    OrderBy("id", Asc).
//	    Limit(20).
//	    Offset(40).
//	    Build()
type SelectBuilder struct {
	table   string
	dialect Dialect
	columns []string
	orderBy []orderClause
	limit   *int
	offset  *int
}

// SortDirection controls the ORDER BY direction.
type SortDirection bool

const (
	Asc  SortDirection = false
	Desc SortDirection = true
)

type orderClause struct {
	column string
	dir    SortDirection
}

// Select starts a new SelectBuilder for the given table and dialect.
func Select(table string, d Dialect) *SelectBuilder {
	return &SelectBuilder{table: table, dialect: d}
}

// Columns restricts the SELECT to the specified columns.
// If not called, SELECT * is used.
func (b *SelectBuilder) Columns(cols ...string) *SelectBuilder {
	b.columns = cols
	return b
}

// OrderBy appends an ORDER BY clause for the given column and direction.
func (b *SelectBuilder) OrderBy(column string, dir SortDirection) *SelectBuilder {
	b.orderBy = append(b.orderBy, orderClause{column, dir})
	return b
}

// Limit sets the maximum number of rows to return.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = &n
	return b
}

// Offset sets the number of rows to skip (for pagination).
func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.offset = &n
	return b
}

// Build produces the final SQL string and argument slice.
// Returns an error for a missing table or a negative limit or offset.
func (b *SelectBuilder) Build() (string, []any, error) {
	if b.table == "" {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "select needs a table")
	}
	if b.limit != nil && *b.limit < 0 {
		return "", nil, errs.Newf(errs.ErrKindInvalidInput, "negative LIMIT %d", *b.limit)
	}
	if b.offset != nil && *b.offset < 0 {
		return "", nil, errs.Newf(errs.ErrKindInvalidInput, "negative OFFSET %d", *b.offset)
	}

	// --- column list ---
	cols := "*"
	if len(b.columns) > 0 {
		quoted := make([]string, len(b.columns))
		for i, c := range b.columns {
			quoted[i] = b.quote(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(b.quote(b.table))

	var args []any
	argIdx := 1

	// --- ORDER BY ---
	if len(b.orderBy) > 0 {
		parts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			dir := "ASC"
			if o.dir == Desc {
				dir = "DESC"
			}
			parts[i] = fmt.Sprintf("%s %s", b.quote(o.column), dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	// --- LIMIT ---
	if b.limit != nil {
		sb.WriteString(fmt.Sprintf(" LIMIT %s", b.placeholder(argIdx)))
		args = append(args, *b.limit)
		argIdx++
	}

	// --- OFFSET ---
	if b.offset != nil {
		sb.WriteString(fmt.Sprintf(" OFFSET %s", b.placeholder(argIdx)))
		args = append(args, *b.offset)
	}

	return sb.String(), args, nil
}

// placeholder returns the correct parameter placeholder for the dialect.
// Postgres: $1, $2, …   MySQL: ? (index is ignored)
func (b *SelectBuilder) placeholder(idx int) string {
	if b.dialect == DialectMySQL {
		return "?"
	}
	return fmt.Sprintf("$%d", idx)
}

// quote wraps a SQL identifier in the dialect's identifier quotes:
// double quotes for Postgres (ANSI), backticks for MySQL.
func (b *SelectBuilder) quote(name string) string {
	if b.dialect == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
