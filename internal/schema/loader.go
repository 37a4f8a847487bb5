package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a blueprint file.
//
//	tables:
//	  - table: users
//	    comment: Registered users
//	    columns:
//	      - {name: id, type: increments}
//	      - {name: email, type: string, length: 255}
//	      - {type: timestamps}
//	    indexes:
//	      - {type: unique, columns: [email]}
type File struct {
	Tables []TableSpec `yaml:"tables"`
}

// TableSpec declares one table.
type TableSpec struct {
	Table   string       `yaml:"table"`
	Comment string       `yaml:"comment"`
	Columns []ColumnSpec `yaml:"columns"`
	Indexes []IndexSpec  `yaml:"indexes"`
}

// ColumnSpec declares one column, or a column group such as timestamps.
type ColumnSpec struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Length    *int   `yaml:"length"`
	Total     *int   `yaml:"total"`
	Places    *int   `yaml:"places"`
	Precision *int   `yaml:"precision"`
	Nullable  bool   `yaml:"nullable"`
	Default   any    `yaml:"default"`
	Comment   string `yaml:"comment"`
}

// IndexSpec declares one index or constraint.
type IndexSpec struct {
	Type       string   `yaml:"type"` // primary, unique, index, foreign
	Name       string   `yaml:"name"`
	Columns    []string `yaml:"columns"`
	References []string `yaml:"references"`
	On         string   `yaml:"on"`
	OnDelete   string   `yaml:"on_delete"`
	OnUpdate   string   `yaml:"on_update"`
}

// LoadFile reads blueprints from a YAML file.
func LoadFile(path string) ([]*Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading blueprint file: %w", err)
	}
	return LoadBlueprints(data)
}

// LoadBlueprints parses blueprints from YAML.
func LoadBlueprints(data []byte) ([]*Blueprint, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing blueprint: %w", err)
	}
	if len(f.Tables) == 0 {
		return nil, fmt.Errorf("blueprint file declares no tables")
	}

	bps := make([]*Blueprint, 0, len(f.Tables))
	for _, spec := range f.Tables {
		bp, err := spec.Blueprint()
		if err != nil {
			return nil, err
		}
		bps = append(bps, bp)
	}
	return bps, nil
}

// Blueprint converts the table declaration into a blueprint.
func (s TableSpec) Blueprint() (*Blueprint, error) {
	if s.Table == "" {
		return nil, fmt.Errorf("blueprint table name is required")
	}
	bp := NewBlueprint(s.Table)
	bp.Comment = s.Comment

	for _, col := range s.Columns {
		if err := col.apply(bp); err != nil {
			return nil, fmt.Errorf("blueprint %s: %w", s.Table, err)
		}
	}
	for _, idx := range s.Indexes {
		if err := idx.apply(bp); err != nil {
			return nil, fmt.Errorf("blueprint %s: %w", s.Table, err)
		}
	}
	return bp, nil
}

func ints(ps ...*int) []int {
	var out []int
	for _, p := range ps {
		if p == nil {
			break
		}
		out = append(out, *p)
	}
	return out
}

func (c ColumnSpec) apply(bp *Blueprint) error {
	prec := ints(c.Precision)

	// Column groups take no name.
	switch strings.ToLower(c.Type) {
	case "timestamps", "nullabletimestamps":
		bp.Timestamps(prec...)
		return nil
	case "timestampstz":
		bp.TimestampsTz(prec...)
		return nil
	case "datetimes":
		bp.DateTimes(prec...)
		return nil
	case "softdeletes":
		bp.SoftDeletes(c.Name, prec...)
		return nil
	case "softdeletestz":
		bp.SoftDeletesTz(c.Name, prec...)
		return nil
	case "softdeletesdatetime":
		bp.SoftDeletesDatetime(c.Name, prec...)
		return nil
	case "id":
		bp.ID()
		return nil
	}

	if c.Name == "" {
		return fmt.Errorf("column of type %q needs a name", c.Type)
	}

	var def *ColumnDefinition
	switch strings.ToLower(c.Type) {
	case "string", "varchar":
		def = bp.String(c.Name, ints(c.Length)...)
	case "char":
		def = bp.Char(c.Name, ints(c.Length)...)
	case "nvarchar2":
		def = bp.NVarchar2(c.Name, ints(c.Length)...)
	case "decimal":
		def = bp.Decimal(c.Name, ints(c.Total, c.Places)...)
	case "text":
		def = bp.Text(c.Name)
	case "integer", "int":
		def = bp.Integer(c.Name)
	case "biginteger", "bigint":
		def = bp.BigInteger(c.Name)
	case "smallinteger", "smallint":
		def = bp.SmallInteger(c.Name)
	case "increments":
		def = bp.Increments(c.Name)
	case "bigincrements":
		def = bp.BigIncrements(c.Name)
	case "boolean", "bool":
		def = bp.Boolean(c.Name)
	case "float", "double":
		def = bp.Float(c.Name)
	case "binary":
		def = bp.Binary(c.Name)
	case "json":
		def = bp.JSON(c.Name)
	case "uuid":
		def = bp.UUID(c.Name)
	case "date":
		def = bp.Date(c.Name)
	case "datetime":
		def = bp.DateTime(c.Name, prec...)
	case "datetimetz":
		def = bp.DateTimeTz(c.Name, prec...)
	case "timestamp":
		def = bp.Timestamp(c.Name, prec...)
	case "timestamptz":
		def = bp.TimestampTz(c.Name, prec...)
	default:
		return fmt.Errorf("column %s: unknown type %q", c.Name, c.Type)
	}

	if c.Nullable {
		def.Nullable()
	}
	if c.Default != nil {
		def.Default(c.Default)
	}
	if c.Comment != "" {
		def.Comment(c.Comment)
	}
	return nil
}

func (i IndexSpec) apply(bp *Blueprint) error {
	if len(i.Columns) == 0 {
		return fmt.Errorf("%s index needs columns", i.Type)
	}

	var cmd *Command
	switch strings.ToLower(i.Type) {
	case "primary":
		cmd = bp.Primary(i.Columns...)
	case "unique":
		cmd = bp.Unique(i.Columns...)
	case "index", "":
		cmd = bp.Index(i.Columns...)
	case "foreign":
		if i.On == "" || len(i.References) == 0 {
			return fmt.Errorf("foreign key on %v needs references and on", i.Columns)
		}
		cmd = bp.Foreign(i.Columns...).References(i.References...).On(i.On).
			OnDeleteAction(i.OnDelete).OnUpdateAction(i.OnUpdate)
	default:
		return fmt.Errorf("unknown index type %q", i.Type)
	}
	if i.Name != "" {
		cmd.Named(i.Name)
	}
	return nil
}
