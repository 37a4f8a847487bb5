// Package connection wraps a database handle with the session handling and
// statement rewriting of its dialect. Selects pass through the dialect's
// rewrite rules; session variables are emitted as one statement each.
package connection

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johndauphine/go-dm/internal/config"
	"github.com/johndauphine/go-dm/internal/driver"
	"github.com/johndauphine/go-dm/internal/logging"
)

// DB is the subset of *sql.DB a Connection needs.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SelectOptions controls how a select is run.
type SelectOptions struct {
	// Lock runs the select inside a transaction that is committed once all
	// rows are read, so FOR UPDATE locks are held for the read.
	Lock bool
}

// Row is a single result row keyed by column name.
type Row map[string]any

var driverTitles = map[string]string{
	"dm":       "Dm",
	"postgres": "PostgreSQL",
	"mssql":    "SQL Server",
	"sqlite":   "SQLite",
}

// Connection is a configured database connection.
type Connection struct {
	db      DB
	cfg     config.ConnectionConfig
	dialect driver.Dialect
	id      string

	mu     sync.RWMutex
	schema string
}

// New wraps db for cfg. The schema defaults to the username when cfg
// leaves it empty.
func New(db DB, cfg config.ConnectionConfig) (*Connection, error) {
	if cfg.Driver == "" {
		cfg.Driver = "dm"
	}
	d, err := driver.Get(cfg.Driver)
	if err != nil {
		return nil, err
	}
	cfg.Driver = d.Name()

	schema := cfg.Schema
	if schema == "" {
		schema = cfg.Username
	}
	return &Connection{
		db:      db,
		cfg:     cfg,
		dialect: d.Dialect(),
		id:      uuid.NewString(),
		schema:  schema,
	}, nil
}

// ID uniquely identifies this connection in logs.
func (c *Connection) ID() string { return c.id }

// DriverTitle returns the human-readable driver name, e.g. "Dm".
func (c *Connection) DriverTitle() string {
	if title, ok := driverTitles[c.cfg.Driver]; ok {
		return title
	}
	return c.cfg.Driver
}

// Dialect returns the connection's SQL dialect.
func (c *Connection) Dialect() driver.Dialect { return c.dialect }

// Config returns the connection settings.
func (c *Connection) Config() config.ConnectionConfig { return c.cfg }

// TablePrefix returns the configured table prefix.
func (c *Connection) TablePrefix() string { return c.cfg.Prefix }

// IdentifierMaxLength returns the index name limit, preferring the
// configured override over the dialect's own limit.
func (c *Connection) IdentifierMaxLength() int {
	if c.cfg.IdentifierMaxLength > 0 {
		return c.cfg.IdentifierMaxLength
	}
	return c.dialect.MaxIdentifierLength()
}

// Schema returns the current schema.
func (c *Connection) Schema() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.schema
}

// SetSchema switches the session's current schema.
func (c *Connection) SetSchema(ctx context.Context, schema string) error {
	c.mu.Lock()
	c.schema = schema
	c.mu.Unlock()
	return c.SetSessionVars(ctx, map[string]string{"CURRENT_SCHEMA": schema})
}

// SetSessionVars sets each variable with its own statement, in key order.
func (c *Connection) SetSessionVars(ctx context.Context, vars map[string]string) error {
	for _, stmt := range c.dialect.SessionStatements(vars) {
		if err := c.Statement(ctx, stmt); err != nil {
			return fmt.Errorf("setting session variables: %w", err)
		}
	}
	return nil
}

// SetDateFormat sets the session date and timestamp formats. An empty
// format means YYYY-MM-DD HH24:MI:SS.
func (c *Connection) SetDateFormat(ctx context.Context, format string) error {
	if format == "" {
		format = "YYYY-MM-DD HH24:MI:SS"
	}
	return c.SetSessionVars(ctx, map[string]string{
		"NLS_DATE_FORMAT":      format,
		"NLS_TIMESTAMP_FORMAT": format,
	})
}

// Configure applies the configured date format and session variables.
// Drivers without session variables make this a no-op.
func (c *Connection) Configure(ctx context.Context) error {
	if c.cfg.DateFormat != "" {
		if err := c.SetDateFormat(ctx, c.cfg.DateFormat); err != nil {
			return err
		}
	}
	if len(c.cfg.Session) > 0 {
		return c.SetSessionVars(ctx, c.cfg.Session)
	}
	return nil
}

// Select runs query with positional bindings after applying the dialect's
// rewrite rules and returns every row.
func (c *Connection) Select(ctx context.Context, query string, bindings []any, opts SelectOptions) ([]Row, error) {
	query = c.dialect.RewriteRules().Apply(query)
	start := time.Now()
	defer c.logQuery(start, query, bindings)

	if !opts.Lock {
		return c.selectWith(ctx, c.db, query, bindings)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	rows, err := c.selectWith(ctx, tx, query, bindings)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return rows, nil
}

func (c *Connection) selectWith(ctx context.Context, q queryer, query string, bindings []any) ([]Row, error) {
	rows, err := q.QueryContext(ctx, query, bindings...)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// Statement executes a statement that returns no rows.
func (c *Connection) Statement(ctx context.Context, query string, bindings ...any) error {
	_, err := c.Affecting(ctx, query, bindings...)
	return err
}

// Affecting executes a statement and returns the number of affected rows.
func (c *Connection) Affecting(ctx context.Context, query string, bindings ...any) (int64, error) {
	start := time.Now()
	defer c.logQuery(start, query, bindings)

	res, err := c.db.ExecContext(ctx, query, bindings...)
	if err != nil {
		return 0, fmt.Errorf("executing %q: %w", query, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Not every driver reports affected rows for DDL.
		return 0, nil
	}
	return n, nil
}

// Close closes the underlying handle when it supports closing.
func (c *Connection) Close() error {
	if closer, ok := c.db.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Connection) logQuery(start time.Time, query string, bindings []any) {
	if !logging.IsDebug() {
		return
	}
	logging.Debug("[%s] %s %v (%s)", c.id[:8], query, bindings, time.Since(start).Round(time.Microsecond))
}
