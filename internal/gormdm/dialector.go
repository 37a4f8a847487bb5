// Package gormdm is a gorm dialector backed by the driver registry. It maps
// gorm fields through the driver's TypeMapper, sends every statement through
// the dialect's rewrite rules, and names indexes and constraints with the
// naming package so models fit a 30 character identifier limit.
package gormdm

import (
	"database/sql"
	"regexp"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/callbacks"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/migrator"
	"gorm.io/gorm/schema"

	"github.com/johndauphine/go-dm/internal/driver"
	dmschema "github.com/johndauphine/go-dm/internal/schema"
)

// DefaultDriverName is used when Config.DriverName is empty.
const DefaultDriverName = "dm"

// Config configures a Dialector.
type Config struct {
	// DriverName is a registered driver name or alias.
	DriverName string
	// DSN is passed to sql.Open when Conn is nil.
	DSN string
	// Conn is an existing pool, typically a *sql.DB.
	Conn gorm.ConnPool
	// Schema scopes table and index lookups. Empty means the session's
	// current schema.
	Schema string
}

// Dialector implements gorm.Dialector.
type Dialector struct {
	*Config

	drv         driver.Driver
	err         error
	placeholder *regexp.Regexp
}

// Open returns a Dameng dialector for dsn.
func Open(dsn string) gorm.Dialector {
	return New(Config{DSN: dsn})
}

// New returns a dialector for cfg. An unknown driver is reported by
// gorm.Open.
func New(cfg Config) *Dialector {
	if cfg.DriverName == "" {
		cfg.DriverName = DefaultDriverName
	}
	d := &Dialector{Config: &cfg}
	d.drv, d.err = driver.Get(cfg.DriverName)
	if d.err == nil {
		d.placeholder = numericPlaceholder(d.drv.Dialect())
	}
	return d
}

// numericPlaceholder matches $1 or @p1 style placeholders, or returns nil
// for dialects that use ?.
func numericPlaceholder(dialect driver.Dialect) *regexp.Regexp {
	p := dialect.ParameterPlaceholder(1)
	if p == "?" {
		return nil
	}
	return regexp.MustCompile(regexp.QuoteMeta(strings.TrimSuffix(p, "1")) + `(\d+)`)
}

func (d *Dialector) Name() string {
	if d.drv == nil {
		return d.DriverName
	}
	return d.drv.Name()
}

// Dialect returns the SQL dialect, or nil when the driver is unknown.
func (d *Dialector) Dialect() driver.Dialect {
	if d.drv == nil {
		return nil
	}
	return d.drv.Dialect()
}

func (d *Dialector) Initialize(db *gorm.DB) error {
	if d.err != nil {
		return d.err
	}

	conn := d.Conn
	if conn == nil {
		sqlDB, err := sql.Open(d.drv.SQLDriverName(), d.DSN)
		if err != nil {
			return err
		}
		conn = sqlDB
	}
	db.ConnPool = NewConnPool(conn, d.drv.Dialect().RewriteRules())

	cfg := &callbacks.Config{}
	switch d.drv.Dialect().DBType() {
	case "postgres":
		cfg.CreateClauses = []string{"INSERT", "VALUES", "ON CONFLICT", "RETURNING"}
		cfg.UpdateClauses = []string{"UPDATE", "SET", "FROM", "WHERE", "RETURNING"}
		cfg.DeleteClauses = []string{"DELETE", "FROM", "WHERE", "RETURNING"}
	case "sqlite":
		cfg.LastInsertIDReversed = true
	}
	callbacks.RegisterDefaultCallbacks(db, cfg)

	for k, v := range d.clauseBuilders() {
		db.ClauseBuilders[k] = v
	}
	return nil
}

func (d *Dialector) clauseBuilders() map[string]clause.ClauseBuilder {
	switch d.drv.Dialect().DBType() {
	case "sqlite", "mssql":
		// No FOR UPDATE; SQLite locks the database and SQL Server uses hints.
		return map[string]clause.ClauseBuilder{
			"FOR": func(c clause.Clause, builder clause.Builder) {
				if _, ok := c.Expression.(clause.Locking); ok {
					return
				}
				c.Build(builder)
			},
		}
	}
	return nil
}

func (d *Dialector) Migrator(db *gorm.DB) gorm.Migrator {
	return Migrator{
		Migrator: migrator.Migrator{Config: migrator.Config{
			DB:                          db,
			Dialector:                   d,
			CreateIndexAfterCreateTable: true,
		}},
		dialector: d,
	}
}

func (d *Dialector) DataTypeOf(field *schema.Field) string {
	return d.drv.TypeMapper().MapType(ColumnOf(field))
}

// ColumnOf converts a gorm field into a column for the TypeMapper.
func ColumnOf(field *schema.Field) driver.Column {
	col := driver.Column{
		Name:     field.DBName,
		Nullable: !field.NotNull && !field.PrimaryKey,
		Comment:  field.Comment,
	}

	switch field.DataType {
	case schema.Bool:
		col.Type = driver.TypeBoolean
	case schema.Int, schema.Uint:
		switch {
		case field.Size > 0 && field.Size <= 16:
			col.Type = driver.TypeSmallInt
		case field.Size > 0 && field.Size <= 32:
			col.Type = driver.TypeInteger
		default:
			col.Type = driver.TypeBigInteger
		}
		col.AutoIncrement = field.AutoIncrement && field.PrimaryKey
	case schema.Float:
		if field.Precision > 0 {
			col.Type = driver.TypeDecimal
			col.Total = field.Precision
			col.Places = field.Scale
		} else {
			col.Type = driver.TypeFloat
		}
	case schema.String:
		col.Type = driver.TypeString
		col.Length = field.Size
		if col.Length <= 0 {
			col.Length = dmschema.DefaultStringLength
		}
	case schema.Time:
		col.Type = driver.TypeTimestamp
		if field.Precision > 0 {
			p := field.Precision
			col.Precision = &p
		}
	case schema.Bytes:
		col.Type = driver.TypeBinary
	default:
		col.Type = string(field.DataType)
	}
	return col
}

func (d *Dialector) DefaultValueOf(field *schema.Field) clause.Expression {
	if field.AutoIncrement && d.drv.Dialect().DBType() == "sqlite" {
		return clause.Expr{SQL: "NULL"}
	}
	return clause.Expr{SQL: "DEFAULT"}
}

func (d *Dialector) BindVarTo(writer clause.Writer, stmt *gorm.Statement, _ interface{}) {
	writer.WriteString(d.drv.Dialect().ParameterPlaceholder(len(stmt.Vars)))
}

// QuoteTo quotes each dot-separated part of str.
func (d *Dialector) QuoteTo(writer clause.Writer, str string) {
	for i, part := range strings.Split(str, ".") {
		if i > 0 {
			writer.WriteByte('.')
		}
		writer.WriteString(d.drv.Dialect().QuoteIdentifier(part))
	}
}

func (d *Dialector) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, d.placeholder, `'`, vars...)
}
