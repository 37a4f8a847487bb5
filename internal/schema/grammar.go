package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/johndauphine/go-dm/internal/driver"
	"github.com/johndauphine/go-dm/internal/naming"
)

// ErrEmptyBlueprint is returned when compiling a blueprint without columns.
var ErrEmptyBlueprint = errors.New("blueprint has no columns")

// Grammar compiles blueprints into DDL statements for one driver.
type Grammar struct {
	dialect   driver.Dialect
	types     driver.TypeMapper
	maxLength int
}

// NewGrammar returns a grammar for d using its dialect's identifier limit.
func NewGrammar(d driver.Driver) *Grammar {
	return &Grammar{
		dialect:   d.Dialect(),
		types:     d.TypeMapper(),
		maxLength: d.Dialect().MaxIdentifierLength(),
	}
}

// WithIdentifierLimit overrides the identifier limit used for generated names.
func (g *Grammar) WithIdentifierLimit(n int) *Grammar {
	if n > 0 {
		g.maxLength = n
	}
	return g
}

// Dialect returns the grammar's SQL dialect.
func (g *Grammar) Dialect() driver.Dialect { return g.dialect }

// CompileCreate returns the statements that create the blueprint's table
// in schema, followed by its constraints, indexes and comments.
func (g *Grammar) CompileCreate(bp *Blueprint, schema string) ([]string, error) {
	if len(bp.columns) == 0 {
		return nil, fmt.Errorf("%s: %w", bp.Table, ErrEmptyBlueprint)
	}
	table := g.dialect.QualifyTable(schema, bp.PrefixedTable())

	defs := make([]string, 0, len(bp.columns))
	for _, col := range bp.columns {
		defs = append(defs, g.compileColumn(col.Column))
	}

	// SQLite cannot add constraints to an existing table.
	inline := g.dialect.DBType() == "sqlite"

	var after []string
	for _, cmd := range bp.commands {
		name, err := g.commandName(bp, cmd)
		if err != nil {
			return nil, err
		}
		if cmd.Kind == naming.KindIndex {
			after = append(after, fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
				g.dialect.QuoteIdentifier(name), table, g.columnize(cmd.Columns)))
			continue
		}

		constraint, err := g.compileConstraint(schema, bp, cmd, name)
		if err != nil {
			return nil, err
		}
		if inline {
			defs = append(defs, constraint)
		} else {
			after = append(after, fmt.Sprintf("ALTER TABLE %s ADD %s", table, constraint))
		}
	}

	stmts := []string{fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))}
	stmts = append(stmts, after...)
	stmts = append(stmts, g.compileComments(table, bp)...)
	return stmts, nil
}

// CompileDrop returns DROP TABLE for table in schema.
func (g *Grammar) CompileDrop(schema, table string) string {
	return "DROP TABLE " + g.dialect.QualifyTable(schema, table)
}

// CompileDropIfExists returns DROP TABLE IF EXISTS for table in schema.
func (g *Grammar) CompileDropIfExists(schema, table string) string {
	return "DROP TABLE IF EXISTS " + g.dialect.QualifyTable(schema, table)
}

func (g *Grammar) compileColumn(col driver.Column) string {
	var sb strings.Builder
	sb.WriteString(g.dialect.QuoteIdentifier(col.Name))
	sb.WriteString(" ")
	sb.WriteString(g.types.MapType(col))

	// Identity columns carry their own constraints.
	if col.AutoIncrement && col.IsIntegerType() {
		return sb.String()
	}
	if col.HasDefault() {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(g.defaultValue(col.Default))
	}
	if col.Nullable {
		sb.WriteString(" NULL")
	} else {
		sb.WriteString(" NOT NULL")
	}
	return sb.String()
}

func (g *Grammar) compileConstraint(schema string, bp *Blueprint, cmd *Command, name string) (string, error) {
	prefix := "CONSTRAINT " + g.dialect.QuoteIdentifier(name) + " "
	cols := g.columnize(cmd.Columns)

	switch cmd.Kind {
	case naming.KindPrimary:
		return prefix + "PRIMARY KEY (" + cols + ")", nil
	case naming.KindUnique:
		return prefix + "UNIQUE (" + cols + ")", nil
	case naming.KindForeign:
		if cmd.RefTable == "" || len(cmd.RefColumns) == 0 {
			return "", fmt.Errorf("foreign key %s on %s: missing referenced table or columns", name, bp.Table)
		}
		ref := g.dialect.QualifyTable(schema, bp.prefix+cmd.RefTable)
		s := fmt.Sprintf("%sFOREIGN KEY (%s) REFERENCES %s (%s)", prefix, cols, ref, g.columnize(cmd.RefColumns))
		if cmd.OnDelete != "" {
			s += " ON DELETE " + strings.ToUpper(cmd.OnDelete)
		}
		if cmd.OnUpdate != "" {
			s += " ON UPDATE " + strings.ToUpper(cmd.OnUpdate)
		}
		return s, nil
	default:
		return "", fmt.Errorf("unsupported constraint kind %q on %s", cmd.Kind, bp.Table)
	}
}

func (g *Grammar) commandName(bp *Blueprint, cmd *Command) (string, error) {
	if cmd.Name != "" {
		return cmd.Name, nil
	}
	name, err := bp.IndexName(cmd.Kind, cmd.Columns, g.maxLength)
	if err != nil {
		return "", fmt.Errorf("naming %s on %s: %w", cmd.Kind, bp.Table, err)
	}
	return name, nil
}

func (g *Grammar) compileComments(table string, bp *Blueprint) []string {
	if !g.dialect.SupportsComments() {
		return nil
	}
	var stmts []string
	if bp.Comment != "" {
		stmts = append(stmts, fmt.Sprintf("COMMENT ON TABLE %s IS %s", table, g.dialect.QuoteString(bp.Comment)))
	}
	for _, col := range bp.columns {
		if col.Column.Comment == "" {
			continue
		}
		stmts = append(stmts, fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s",
			table, g.dialect.QuoteIdentifier(col.Name), g.dialect.QuoteString(col.Column.Comment)))
	}
	return stmts
}

func (g *Grammar) columnize(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = g.dialect.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

func (g *Grammar) defaultValue(v any) string {
	switch val := v.(type) {
	case Expression:
		return string(val)
	case string:
		return g.dialect.QuoteString(val)
	case bool:
		if g.dialect.DBType() == "postgres" {
			return strings.ToUpper(strconv.FormatBool(val))
		}
		if val {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case decimal.Decimal:
		return val.String()
	default:
		return g.dialect.QuoteString(fmt.Sprint(val))
	}
}
