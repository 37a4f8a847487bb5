package driver

import "github.com/johndauphine/go-dm/internal/rewrite"

// Dialect abstracts database-specific SQL syntax differences.
// Each database driver provides its own Dialect implementation.
type Dialect interface {
	// DBType returns the database type (e.g., "dm", "postgres").
	DBType() string

	// QuoteIdentifier quotes an identifier (table, column name).
	// Dameng/PostgreSQL: "identifier"
	// MSSQL: [identifier]
	QuoteIdentifier(name string) string

	// QualifyTable returns a fully qualified table reference.
	// An empty schema returns the quoted table alone.
	QualifyTable(schema, table string) string

	// QuoteString quotes a string literal, escaping embedded quotes.
	QuoteString(value string) string

	// ParameterPlaceholder returns the parameter placeholder for the given index.
	// Dameng/SQLite: ?, ?, ?
	// PostgreSQL: $1, $2, $3
	// MSSQL: @p1, @p2, @p3
	ParameterPlaceholder(index int) string

	// BuildDSN builds a connection string for this database.
	BuildDSN(host string, port int, database, user, password string, opts map[string]any) string

	// MaxIdentifierLength is the longest index or constraint name the
	// database accepts.
	MaxIdentifierLength() int

	// RewriteRules returns substitutions applied to rendered SQL before it
	// is sent to the database.
	RewriteRules() rewrite.Rules

	// SessionStatements returns the statements that set the given session
	// variables, in a deterministic order. Dialects without session
	// variables return nil.
	SessionStatements(vars map[string]string) []string

	// TableExistsQuery returns a query yielding a single row count that is
	// non-zero when the table exists, and the arguments to run it with.
	TableExistsQuery(schema, table string) (string, []any)

	// IndexExistsQuery is TableExistsQuery for an index on table.
	IndexExistsQuery(schema, table, index string) (string, []any)

	// SupportsComments reports whether COMMENT ON TABLE/COLUMN is available.
	SupportsComments() bool
}
