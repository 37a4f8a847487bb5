// Package query provides a small SELECT builder that renders SQL for a
// connection's dialect and runs it through the connection, so dialect
// rewrites and lock handling apply to every query it builds.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/johndauphine/go-dm/internal/connection"
	"github.com/johndauphine/go-dm/internal/driver"
)

// Runner executes rendered selects. *connection.Connection implements it.
type Runner interface {
	Dialect() driver.Dialect
	Select(ctx context.Context, query string, bindings []any, opts connection.SelectOptions) ([]connection.Row, error)
}

type where struct {
	sql     string
	boolean string // AND or OR
}

type order struct {
	column string
	desc   bool
}

// Builder accumulates a SELECT statement. Builders are not safe for
// concurrent use; Clone one per goroutine.
type Builder struct {
	runner  Runner
	dialect driver.Dialect

	table          string
	columns        []string
	selectBindings []any
	wheres         []where
	whereBindings  []any
	orders         []order
	limit          int
	offset         int
	lock           bool
	dateFormat     string
	err            error
}

// New returns an empty builder bound to r.
func New(r Runner) *Builder {
	return &Builder{runner: r, dialect: r.Dialect()}
}

// From sets the table to select from. A dotted name is treated as schema.table.
func (b *Builder) From(table string) *Builder {
	b.table = table
	return b
}

// Select adds plain column names to the select list.
func (b *Builder) Select(columns ...string) *Builder {
	for _, col := range columns {
		b.columns = append(b.columns, b.wrap(col))
	}
	return b
}

// SelectRaw adds a raw select expression. The dialect's rewrite rules are
// applied to expr, so functions such as GROUP_CONCAT become their native
// equivalent before the query is rendered.
func (b *Builder) SelectRaw(expr string, bindings ...any) *Builder {
	b.columns = append(b.columns, b.dialect.RewriteRules().Apply(expr))
	b.selectBindings = append(b.selectBindings, bindings...)
	return b
}

// Where adds a raw condition joined with AND. Use ? for bindings.
func (b *Builder) Where(condition string, bindings ...any) *Builder {
	return b.addWhere(condition, "AND", bindings...)
}

// OrWhere adds a raw condition joined with OR.
func (b *Builder) OrWhere(condition string, bindings ...any) *Builder {
	return b.addWhere(condition, "OR", bindings...)
}

// WhereJSONOverlaps matches rows whose JSON column shares a value with
// {"path": value}. column is written as col->path; the binding is the JSON
// document built from path and value.
func (b *Builder) WhereJSONOverlaps(column string, value any) *Builder {
	col, path, found := strings.Cut(column, "->")
	var doc any = value
	if found {
		doc = map[string]any{path: value}
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		b.err = fmt.Errorf("encoding JSON overlaps value for %s: %w", column, err)
		return b
	}
	return b.addWhere(fmt.Sprintf("JSON_OVERLAPS(%s, ?)", b.wrap(col)), "AND", string(encoded))
}

func (b *Builder) addWhere(condition, boolean string, bindings ...any) *Builder {
	b.wheres = append(b.wheres, where{sql: condition, boolean: boolean})
	b.whereBindings = append(b.whereBindings, bindings...)
	return b
}

// OrderBy adds an ORDER BY column. direction is "asc" or "desc".
func (b *Builder) OrderBy(column, direction string) *Builder {
	b.orders = append(b.orders, order{column: column, desc: strings.EqualFold(direction, "desc")})
	return b
}

// Limit caps the number of rows returned.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Offset skips the first n rows.
func (b *Builder) Offset(n int) *Builder {
	b.offset = n
	return b
}

// LockForUpdate locks the selected rows. The select runs inside a
// transaction that is committed once the rows are read.
func (b *Builder) LockForUpdate() *Builder {
	b.lock = true
	return b
}

// DateFormat sets the session date format used by ToRawSQL for time values.
func (b *Builder) DateFormat(format string) *Builder {
	b.dateFormat = format
	return b
}

// Clone returns an independent copy of the builder.
func (b *Builder) Clone() *Builder {
	c := *b
	c.columns = append([]string(nil), b.columns...)
	c.selectBindings = append([]any(nil), b.selectBindings...)
	c.wheres = append([]where(nil), b.wheres...)
	c.whereBindings = append([]any(nil), b.whereBindings...)
	c.orders = append([]order(nil), b.orders...)
	return &c
}

// Err returns the first error recorded while building.
func (b *Builder) Err() error {
	return b.err
}

// Bindings returns select bindings followed by where bindings.
func (b *Builder) Bindings() []any {
	out := make([]any, 0, len(b.selectBindings)+len(b.whereBindings))
	out = append(out, b.selectBindings...)
	return append(out, b.whereBindings...)
}

// ToSQL renders the statement with the dialect's placeholders.
func (b *Builder) ToSQL() (string, error) {
	sql, err := b.compile()
	if err != nil {
		return "", err
	}
	return numberPlaceholders(sql, b.dialect), nil
}

// Get runs the query and returns every row.
func (b *Builder) Get(ctx context.Context) ([]connection.Row, error) {
	sql, err := b.ToSQL()
	if err != nil {
		return nil, err
	}
	return b.runner.Select(ctx, sql, b.Bindings(), connection.SelectOptions{Lock: b.lock})
}

// First runs the query with LIMIT 1 and returns the row, or nil when
// nothing matched.
func (b *Builder) First(ctx context.Context) (connection.Row, error) {
	rows, err := b.Clone().Limit(1).Get(ctx)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// compile renders the statement using ? for every binding.
func (b *Builder) compile() (string, error) {
	if b.err != nil {
		return "", b.err
	}
	if b.table == "" {
		return "", fmt.Errorf("query has no table")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(b.columns) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(b.columns, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(b.wrapTable(b.table))

	for i, w := range b.wheres {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" " + w.boolean + " ")
		}
		sb.WriteString(w.sql)
	}

	if len(b.orders) > 0 {
		parts := make([]string, len(b.orders))
		for i, o := range b.orders {
			dir := "ASC"
			if o.desc {
				dir = "DESC"
			}
			parts[i] = b.wrap(o.column) + " " + dir
		}
		sb.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}

	sb.WriteString(b.compileLimit())

	if b.lock {
		sb.WriteString(lockClause(b.dialect.DBType()))
	}
	return sb.String(), nil
}

func (b *Builder) compileLimit() string {
	if b.limit <= 0 && b.offset <= 0 {
		return ""
	}
	if b.dialect.DBType() == "mssql" {
		s := fmt.Sprintf(" OFFSET %d ROWS", b.offset)
		if b.limit > 0 {
			s += fmt.Sprintf(" FETCH NEXT %d ROWS ONLY", b.limit)
		}
		return s
	}
	var s string
	if b.limit > 0 {
		s = fmt.Sprintf(" LIMIT %d", b.limit)
	} else if b.dialect.DBType() == "sqlite" {
		s = " LIMIT -1"
	}
	if b.offset > 0 {
		s += fmt.Sprintf(" OFFSET %d", b.offset)
	}
	return s
}

func lockClause(dbType string) string {
	switch dbType {
	case "dm", "postgres":
		return " FOR UPDATE"
	default:
		// SQLite locks the database for the whole transaction; SQL Server
		// takes locks through table hints that this builder does not emit.
		return ""
	}
}

// wrap quotes a column reference, leaving * and expressions alone.
func (b *Builder) wrap(col string) string {
	if col == "*" || strings.ContainsAny(col, "( ") {
		return col
	}
	parts := strings.Split(col, ".")
	for i, p := range parts {
		if p != "*" {
			parts[i] = b.dialect.QuoteIdentifier(p)
		}
	}
	return strings.Join(parts, ".")
}

func (b *Builder) wrapTable(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return b.dialect.QualifyTable(schema, name)
	}
	return b.dialect.QualifyTable("", table)
}

// numberPlaceholders replaces each ? outside string literals with the
// dialect's placeholder for its position.
func numberPlaceholders(sql string, d driver.Dialect) string {
	if d.ParameterPlaceholder(1) == "?" {
		return sql
	}
	var sb strings.Builder
	n := 0
	inString := false
	for _, r := range sql {
		switch {
		case r == '\'':
			inString = !inString
			sb.WriteRune(r)
		case r == '?' && !inString:
			n++
			sb.WriteString(d.ParameterPlaceholder(n))
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
