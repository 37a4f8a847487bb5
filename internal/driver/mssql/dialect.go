package mssql

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/johndauphine/go-dm/internal/rewrite"
)

const maxIdentifierLength = 128

// Dialect implements driver.Dialect for SQL Server.
type Dialect struct{}

var rules = rewrite.FunctionRename("group_concat", "string_agg")

func (d *Dialect) DBType() string { return "mssql" }

func (d *Dialect) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (d *Dialect) QualifyTable(schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

// QuoteString returns an N” literal so non-ASCII text survives.
func (d *Dialect) QuoteString(value string) string {
	return "N'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func (d *Dialect) BuildDSN(host string, port int, database, user, password string, opts map[string]any) string {
	encodedUser := url.QueryEscape(user)
	encodedPassword := url.QueryEscape(password)
	encodedDatabase := url.QueryEscape(database)

	dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
		encodedUser, encodedPassword, host, port, encodedDatabase)

	// Add optional parameters
	if encrypt, ok := opts["encrypt"].(bool); ok {
		if encrypt {
			dsn += "&encrypt=true"
		} else {
			dsn += "&encrypt=false"
		}
	}
	if trustCert, ok := opts["trustServerCertificate"].(bool); ok && trustCert {
		dsn += "&TrustServerCertificate=true"
	}

	return dsn
}

func (d *Dialect) ParameterPlaceholder(index int) string {
	return fmt.Sprintf("@p%d", index)
}

func (d *Dialect) MaxIdentifierLength() int {
	return maxIdentifierLength
}

func (d *Dialect) RewriteRules() rewrite.Rules {
	return rules
}

// SessionStatements returns nil. SQL Server binds the default schema to
// the login and has no session date format variables.
func (d *Dialect) SessionStatements(_ map[string]string) []string {
	return nil
}

func (d *Dialect) TableExistsQuery(schema, table string) (string, []any) {
	if schema == "" {
		return `SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = SCHEMA_NAME() AND TABLE_NAME = @p1`, []any{table}
	}
	return `SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2`, []any{schema, table}
}

func (d *Dialect) IndexExistsQuery(schema, table, index string) (string, []any) {
	q := `SELECT COUNT(*) FROM sys.indexes i
		JOIN sys.tables t ON i.object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE `
	if schema == "" {
		return q + `s.name = SCHEMA_NAME() AND t.name = @p1 AND i.name = @p2`, []any{table, index}
	}
	return q + `s.name = @p1 AND t.name = @p2 AND i.name = @p3`, []any{schema, table, index}
}

// SupportsComments returns false; SQL Server stores comments as extended properties.
func (d *Dialect) SupportsComments() bool { return false }
