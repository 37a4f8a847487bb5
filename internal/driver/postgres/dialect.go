package postgres

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/johndauphine/go-dm/internal/rewrite"
)

// maxIdentifierLength is NAMEDATALEN - 1.
const maxIdentifierLength = 63

// Dialect implements driver.Dialect for PostgreSQL.
type Dialect struct{}

// rules lets GROUP_CONCAT written for other databases run as STRING_AGG.
// STRING_AGG needs an explicit delimiter, so only the function name is
// rewritten and callers pass the delimiter themselves.
var rules = rewrite.FunctionRename("group_concat", "string_agg")

func (d *Dialect) DBType() string { return "postgres" }

func (d *Dialect) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (d *Dialect) QualifyTable(schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

func (d *Dialect) QuoteString(value string) string {
	return pq.QuoteLiteral(value)
}

func (d *Dialect) BuildDSN(host string, port int, database, user, password string, opts map[string]any) string {
	encodedUser := url.QueryEscape(user)
	encodedPassword := url.QueryEscape(password)
	encodedDatabase := url.QueryEscape(database)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		encodedUser, encodedPassword, host, port, encodedDatabase)

	params := url.Values{}
	if sslMode, ok := opts["sslmode"].(string); ok && sslMode != "" {
		params.Set("sslmode", sslMode)
	} else {
		params.Set("sslmode", "prefer")
	}
	if schema, ok := opts["schema"].(string); ok && schema != "" {
		params.Set("search_path", schema)
	}

	return dsn + "?" + params.Encode()
}

func (d *Dialect) ParameterPlaceholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *Dialect) MaxIdentifierLength() int {
	return maxIdentifierLength
}

func (d *Dialect) RewriteRules() rewrite.Rules {
	return rules
}

// SessionStatements maps CURRENT_SCHEMA onto search_path and skips the
// NLS_* formats, which PostgreSQL has no session equivalent for.
func (d *Dialect) SessionStatements(vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		if strings.HasPrefix(strings.ToUpper(k), "NLS_") {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)

	stmts := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.EqualFold(k, "CURRENT_SCHEMA") {
			stmts = append(stmts, "SET search_path TO "+d.QuoteIdentifier(vars[k]))
			continue
		}
		stmts = append(stmts, fmt.Sprintf("SET %s = %s", k, d.QuoteString(vars[k])))
	}
	return stmts
}

func (d *Dialect) TableExistsQuery(schema, table string) (string, []any) {
	if schema == "" {
		return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`, []any{table}
	}
	return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2`, []any{schema, table}
}

func (d *Dialect) IndexExistsQuery(schema, table, index string) (string, []any) {
	if schema == "" {
		return `SELECT COUNT(*) FROM pg_indexes WHERE schemaname = current_schema() AND tablename = $1 AND indexname = $2`, []any{table, index}
	}
	return `SELECT COUNT(*) FROM pg_indexes WHERE schemaname = $1 AND tablename = $2 AND indexname = $3`, []any{schema, table, index}
}

func (d *Dialect) SupportsComments() bool { return true }
