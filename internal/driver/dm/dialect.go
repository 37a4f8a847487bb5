package dm

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/johndauphine/go-dm/internal/naming"
	"github.com/johndauphine/go-dm/internal/rewrite"
)

// Dialect implements driver.Dialect for Dameng.
type Dialect struct{}

// rules maps MySQL-style GROUP_CONCAT onto Dameng's WM_CONCAT.
var rules = rewrite.FunctionRename("group_concat", "wm_concat")

// unquotedSessionVars take identifiers rather than string literals.
var unquotedSessionVars = map[string]bool{
	"CURRENT_SCHEMA": true,
	"EDITION":        true,
}

func (d *Dialect) DBType() string { return "dm" }

func (d *Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *Dialect) QualifyTable(schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

func (d *Dialect) QuoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func (d *Dialect) ParameterPlaceholder(_ int) string {
	return "?"
}

// BuildDSN returns dm://user:password@host:port?schema=S. The port is
// omitted when zero and the schema parameter when empty. Database names
// are not part of a Dameng DSN; a Dameng instance hosts one database.
func (d *Dialect) BuildDSN(host string, port int, _, user, password string, opts map[string]any) string {
	u := url.URL{
		Scheme: "dm",
		User:   url.UserPassword(user, password),
		Host:   host,
	}
	if port > 0 {
		u.Host = host + ":" + strconv.Itoa(port)
	}

	params := url.Values{}
	if schema, ok := opts["schema"].(string); ok && schema != "" {
		params.Set("schema", schema)
	}
	u.RawQuery = params.Encode()
	return u.String()
}

func (d *Dialect) MaxIdentifierLength() int {
	return naming.DefaultMaxLength
}

func (d *Dialect) RewriteRules() rewrite.Rules {
	return rules
}

// SessionStatements renders one ALTER SESSION statement per variable in
// key order. CURRENT_SCHEMA and EDITION values are emitted verbatim; all
// other values are quoted as string literals.
func (d *Dialect) SessionStatements(vars map[string]string) []string {
	if len(vars) == 0 {
		return nil
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	stmts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := vars[k]
		if !unquotedSessionVars[strings.ToUpper(k)] {
			v = d.QuoteString(v)
		}
		stmts = append(stmts, fmt.Sprintf("ALTER SESSION SET %s = %s", k, v))
	}
	return stmts
}

func (d *Dialect) TableExistsQuery(schema, table string) (string, []any) {
	if schema == "" {
		return `SELECT COUNT(*) FROM USER_TABLES WHERE TABLE_NAME = ?`, []any{table}
	}
	return `SELECT COUNT(*) FROM ALL_TABLES WHERE OWNER = ? AND TABLE_NAME = ?`, []any{schema, table}
}

func (d *Dialect) IndexExistsQuery(schema, table, index string) (string, []any) {
	if schema == "" {
		return `SELECT COUNT(*) FROM USER_INDEXES WHERE TABLE_NAME = ? AND INDEX_NAME = ?`, []any{table, index}
	}
	return `SELECT COUNT(*) FROM ALL_INDEXES WHERE TABLE_OWNER = ? AND TABLE_NAME = ? AND INDEX_NAME = ?`, []any{schema, table, index}
}

func (d *Dialect) SupportsComments() bool { return true }
