// Package schema declares tables with a Blueprint, compiles them to DDL for
// a dialect with a Grammar, and runs the DDL through a connection with a
// Builder. Index and constraint names default to the shortened names of
// the naming package, sized to the dialect's identifier limit.
package schema

import (
	"github.com/johndauphine/go-dm/internal/driver"
	"github.com/johndauphine/go-dm/internal/naming"
)

// Dameng column defaults.
const (
	DefaultStringLength    = 8188
	DefaultCharLength      = 1
	DefaultNVarchar2Length = 8188
	DefaultDecimalTotal    = 22
	DefaultDecimalPlaces   = 6
	DefaultSoftDeleteName  = "deleted_at"
)

// Expression is a raw SQL default such as CURRENT_TIMESTAMP.
type Expression string

// ColumnDefinition is a column being declared. Its fluent methods modify
// the column in place.
type ColumnDefinition struct {
	driver.Column
}

// Nullable allows NULL values.
func (c *ColumnDefinition) Nullable() *ColumnDefinition {
	c.Column.Nullable = true
	return c
}

// Default sets the column default. Use Expression for raw SQL.
func (c *ColumnDefinition) Default(v any) *ColumnDefinition {
	c.Column.Default = v
	return c
}

// Comment sets the column comment.
func (c *ColumnDefinition) Comment(text string) *ColumnDefinition {
	c.Column.Comment = text
	return c
}

// Command is an index or constraint declared on a blueprint.
type Command struct {
	Kind    naming.ConstraintKind
	Name    string // empty means generated
	Columns []string

	// Foreign key target.
	RefTable   string
	RefColumns []string
	OnDelete   string
	OnUpdate   string
}

// Named overrides the generated name.
func (c *Command) Named(name string) *Command {
	c.Name = name
	return c
}

// References sets the referenced columns of a foreign key.
func (c *Command) References(columns ...string) *Command {
	c.RefColumns = columns
	return c
}

// On sets the referenced table of a foreign key.
func (c *Command) On(table string) *Command {
	c.RefTable = table
	return c
}

// CascadeOnDelete is shorthand for OnDeleteAction("CASCADE").
func (c *Command) CascadeOnDelete() *Command {
	return c.OnDeleteAction("CASCADE")
}

// OnDeleteAction sets the ON DELETE action of a foreign key.
func (c *Command) OnDeleteAction(action string) *Command {
	c.OnDelete = action
	return c
}

// OnUpdateAction sets the ON UPDATE action of a foreign key.
func (c *Command) OnUpdateAction(action string) *Command {
	c.OnUpdate = action
	return c
}

// Blueprint declares the structure of one table.
type Blueprint struct {
	Table   string
	Comment string

	prefix   string
	columns  []*ColumnDefinition
	commands []*Command
}

// NewBlueprint returns an empty blueprint for table.
func NewBlueprint(table string) *Blueprint {
	return &Blueprint{Table: table}
}

// SetTablePrefix sets the prefix applied to the table and its index names.
func (b *Blueprint) SetTablePrefix(prefix string) {
	b.prefix = prefix
}

// Prefix returns the table prefix.
func (b *Blueprint) Prefix() string { return b.prefix }

// PrefixedTable returns the table name with its prefix.
func (b *Blueprint) PrefixedTable() string { return b.prefix + b.Table }

// Columns returns the declared columns in order.
func (b *Blueprint) Columns() []driver.Column {
	out := make([]driver.Column, len(b.columns))
	for i, c := range b.columns {
		out[i] = c.Column
	}
	return out
}

// Commands returns the declared index and constraint commands in order.
func (b *Blueprint) Commands() []*Command {
	return b.commands
}

// IndexName returns the generated name for an index of kind over columns,
// limited to maxLength characters.
func (b *Blueprint) IndexName(kind naming.ConstraintKind, columns []string, maxLength int) (string, error) {
	return naming.New(maxLength).Generate(naming.Request{
		Prefix:  b.prefix,
		Table:   b.Table,
		Columns: columns,
		Kind:    kind,
	})
}

// AddColumn appends a column of the given blueprint type.
func (b *Blueprint) AddColumn(typ, name string) *ColumnDefinition {
	c := &ColumnDefinition{Column: driver.Column{Name: name, Type: typ}}
	b.columns = append(b.columns, c)
	return c
}

func optional(values []int, fallback int) int {
	if len(values) > 0 {
		return values[0]
	}
	return fallback
}

func precision(values []int) *int {
	if len(values) == 0 {
		return nil
	}
	p := values[0]
	return &p
}

// String adds a VARCHAR column. Length defaults to 8188.
func (b *Blueprint) String(name string, length ...int) *ColumnDefinition {
	c := b.AddColumn(driver.TypeString, name)
	c.Length = optional(length, DefaultStringLength)
	return c
}

// Char adds a CHAR column. Length defaults to 1.
func (b *Blueprint) Char(name string, length ...int) *ColumnDefinition {
	c := b.AddColumn(driver.TypeChar, name)
	c.Length = optional(length, DefaultCharLength)
	return c
}

// NVarchar2 adds an NVARCHAR2 column. Length defaults to 8188.
func (b *Blueprint) NVarchar2(name string, length ...int) *ColumnDefinition {
	c := b.AddColumn(driver.TypeNVarchar2, name)
	c.Length = optional(length, DefaultNVarchar2Length)
	return c
}

// Decimal adds a DECIMAL column. Total and places default to 22 and 6.
func (b *Blueprint) Decimal(name string, totalAndPlaces ...int) *ColumnDefinition {
	c := b.AddColumn(driver.TypeDecimal, name)
	c.Total = DefaultDecimalTotal
	c.Places = DefaultDecimalPlaces
	if len(totalAndPlaces) > 0 {
		c.Total = totalAndPlaces[0]
	}
	if len(totalAndPlaces) > 1 {
		c.Places = totalAndPlaces[1]
	}
	return c
}

func (b *Blueprint) Text(name string) *ColumnDefinition {
	return b.AddColumn(driver.TypeText, name)
}

func (b *Blueprint) Integer(name string) *ColumnDefinition {
	return b.AddColumn(driver.TypeInteger, name)
}

func (b *Blueprint) BigInteger(name string) *ColumnDefinition {
	return b.AddColumn(driver.TypeBigInteger, name)
}

func (b *Blueprint) SmallInteger(name string) *ColumnDefinition {
	return b.AddColumn(driver.TypeSmallInt, name)
}

// Increments adds an auto-incrementing integer primary key.
func (b *Blueprint) Increments(name string) *ColumnDefinition {
	c := b.Integer(name)
	c.AutoIncrement = true
	return c
}

// BigIncrements adds an auto-incrementing big integer primary key.
func (b *Blueprint) BigIncrements(name string) *ColumnDefinition {
	c := b.BigInteger(name)
	c.AutoIncrement = true
	return c
}

// ID adds a big integer primary key named id.
func (b *Blueprint) ID() *ColumnDefinition {
	return b.BigIncrements("id")
}

func (b *Blueprint) Boolean(name string) *ColumnDefinition {
	return b.AddColumn(driver.TypeBoolean, name)
}

func (b *Blueprint) Float(name string) *ColumnDefinition {
	return b.AddColumn(driver.TypeFloat, name)
}

func (b *Blueprint) Binary(name string) *ColumnDefinition {
	return b.AddColumn(driver.TypeBinary, name)
}

func (b *Blueprint) JSON(name string) *ColumnDefinition {
	return b.AddColumn(driver.TypeJSON, name)
}

func (b *Blueprint) UUID(name string) *ColumnDefinition {
	return b.AddColumn(driver.TypeUUID, name)
}

func (b *Blueprint) Date(name string) *ColumnDefinition {
	return b.AddColumn(driver.TypeDate, name)
}

// DateTime adds a date-time column with optional fractional precision.
func (b *Blueprint) DateTime(name string, prec ...int) *ColumnDefinition {
	c := b.AddColumn(driver.TypeDateTime, name)
	c.Precision = precision(prec)
	return c
}

// DateTimeTz adds a date-time column with time zone.
func (b *Blueprint) DateTimeTz(name string, prec ...int) *ColumnDefinition {
	c := b.AddColumn(driver.TypeDateTimeTz, name)
	c.Precision = precision(prec)
	return c
}

// Timestamp adds a timestamp column with optional fractional precision.
func (b *Blueprint) Timestamp(name string, prec ...int) *ColumnDefinition {
	c := b.AddColumn(driver.TypeTimestamp, name)
	c.Precision = precision(prec)
	return c
}

// TimestampTz adds a timestamp column with time zone.
func (b *Blueprint) TimestampTz(name string, prec ...int) *ColumnDefinition {
	c := b.AddColumn(driver.TypeTimestampTz, name)
	c.Precision = precision(prec)
	return c
}

// Timestamps adds nullable created_at and updated_at timestamps.
func (b *Blueprint) Timestamps(prec ...int) {
	b.Timestamp("created_at", prec...).Nullable()
	b.Timestamp("updated_at", prec...).Nullable()
}

// NullableTimestamps is an alias for Timestamps.
func (b *Blueprint) NullableTimestamps(prec ...int) {
	b.Timestamps(prec...)
}

// TimestampsTz adds nullable created_at and updated_at timestamps with time zone.
func (b *Blueprint) TimestampsTz(prec ...int) {
	b.TimestampTz("created_at", prec...).Nullable()
	b.TimestampTz("updated_at", prec...).Nullable()
}

// DateTimes adds nullable created_at and updated_at date-time columns.
func (b *Blueprint) DateTimes(prec ...int) {
	b.DateTime("created_at", prec...).Nullable()
	b.DateTime("updated_at", prec...).Nullable()
}

func softDeleteName(column string) string {
	if column == "" {
		return DefaultSoftDeleteName
	}
	return column
}

// SoftDeletes adds a nullable deletion timestamp. An empty column name
// means deleted_at.
func (b *Blueprint) SoftDeletes(column string, prec ...int) *ColumnDefinition {
	return b.Timestamp(softDeleteName(column), prec...).Nullable()
}

// SoftDeletesTz adds a nullable deletion timestamp with time zone.
func (b *Blueprint) SoftDeletesTz(column string, prec ...int) *ColumnDefinition {
	return b.TimestampTz(softDeleteName(column), prec...).Nullable()
}

// SoftDeletesDatetime adds a nullable deletion date-time column.
func (b *Blueprint) SoftDeletesDatetime(column string, prec ...int) *ColumnDefinition {
	return b.DateTime(softDeleteName(column), prec...).Nullable()
}

func (b *Blueprint) addCommand(kind naming.ConstraintKind, columns []string) *Command {
	cmd := &Command{Kind: kind, Columns: columns}
	b.commands = append(b.commands, cmd)
	return cmd
}

// Primary declares a primary key over columns.
func (b *Blueprint) Primary(columns ...string) *Command {
	return b.addCommand(naming.KindPrimary, columns)
}

// Unique declares a unique constraint over columns.
func (b *Blueprint) Unique(columns ...string) *Command {
	return b.addCommand(naming.KindUnique, columns)
}

// Index declares a plain index over columns.
func (b *Blueprint) Index(columns ...string) *Command {
	return b.addCommand(naming.KindIndex, columns)
}

// Foreign declares a foreign key over columns. Complete it with
// References and On.
func (b *Blueprint) Foreign(columns ...string) *Command {
	return b.addCommand(naming.KindForeign, columns)
}
