package sqlite

import (
	"net/url"
	"strings"

	"github.com/johndauphine/go-dm/internal/rewrite"
)

// Dialect implements driver.Dialect for SQLite.
type Dialect struct{}

func (d *Dialect) DBType() string { return "sqlite" }

func (d *Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QualifyTable ignores schema; attached databases are not used.
func (d *Dialect) QualifyTable(_, table string) string {
	return d.QuoteIdentifier(table)
}

func (d *Dialect) QuoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func (d *Dialect) ParameterPlaceholder(_ int) string { return "?" }

// BuildDSN returns the database path, or "file::memory:" when empty.
// Options become pragma query parameters understood by modernc.org/sqlite.
func (d *Dialect) BuildDSN(_ string, _ int, database, _, _ string, opts map[string]any) string {
	dsn := database
	if dsn == "" {
		dsn = "file::memory:"
	}
	if fk, ok := opts["foreign_keys"].(bool); ok && fk {
		params := url.Values{}
		params.Add("_pragma", "foreign_keys(1)")
		dsn += "?" + params.Encode()
	}
	return dsn
}

// MaxIdentifierLength returns the naming default. SQLite has no limit of
// its own, so generated names stay portable to Dameng.
func (d *Dialect) MaxIdentifierLength() int { return 30 }

// RewriteRules returns nil; SQLite implements GROUP_CONCAT natively.
func (d *Dialect) RewriteRules() rewrite.Rules { return nil }

func (d *Dialect) SessionStatements(_ map[string]string) []string { return nil }

func (d *Dialect) TableExistsQuery(_, table string) (string, []any) {
	return `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, []any{table}
}

func (d *Dialect) IndexExistsQuery(_, table, index string) (string, []any) {
	return `SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND name = ?`, []any{table, index}
}

func (d *Dialect) SupportsComments() bool { return false }
