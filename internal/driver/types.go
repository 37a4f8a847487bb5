package driver

// Table represents a table definition compiled from a schema blueprint.
type Table struct {
	Schema      string       `json:"schema" yaml:"schema"`
	Name        string       `json:"name" yaml:"name"`
	Comment     string       `json:"comment,omitempty" yaml:"comment,omitempty"`
	Columns     []Column     `json:"columns" yaml:"columns"`
	PrimaryKey  *Index       `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	Indexes     []Index      `json:"indexes" yaml:"indexes"`
	ForeignKeys []ForeignKey `json:"foreign_keys" yaml:"foreign_keys"`
}

// FullName returns the fully qualified table name (schema.table).
func (t *Table) FullName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// HasPK returns true if the table has a primary key.
func (t *Table) HasPK() bool {
	return t.PrimaryKey != nil && len(t.PrimaryKey.Columns) > 0
}

// GetName returns the table name.
func (t *Table) GetName() string {
	return t.Name
}

// GetColumnNames returns a slice of column names.
func (t *Table) GetColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Column represents a column definition.
type Column struct {
	Name string `json:"name" yaml:"name"`

	// Type is the blueprint type (one of the Type* constants).
	Type string `json:"type" yaml:"type"`

	// Length applies to string, char and nvarchar2 columns.
	Length int `json:"length,omitempty" yaml:"length,omitempty"`

	// Total and Places apply to decimal columns.
	Total  int `json:"total,omitempty" yaml:"total,omitempty"`
	Places int `json:"places,omitempty" yaml:"places,omitempty"`

	// Precision is the fractional seconds precision of date/time columns.
	// Nil means the database default.
	Precision *int `json:"precision,omitempty" yaml:"precision,omitempty"`

	Nullable      bool   `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	AutoIncrement bool   `json:"auto_increment,omitempty" yaml:"auto_increment,omitempty"`
	Default       any    `json:"default,omitempty" yaml:"default,omitempty"`
	Comment       string `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// HasDefault returns true if the column declares a default value.
func (c *Column) HasDefault() bool {
	return c.Default != nil
}

// IsIntegerType returns true if the column is an integer type.
func (c *Column) IsIntegerType() bool {
	switch c.Type {
	case TypeInteger, TypeBigInteger, TypeSmallInt:
		return true
	}
	return false
}

// Index represents a primary key, unique constraint or plain index.
type Index struct {
	Name     string   `json:"name" yaml:"name"`
	Columns  []string `json:"columns" yaml:"columns"`
	IsUnique bool     `json:"is_unique,omitempty" yaml:"is_unique,omitempty"`
}

// ForeignKey represents a foreign key constraint.
type ForeignKey struct {
	Name       string   `json:"name" yaml:"name"`
	Columns    []string `json:"columns" yaml:"columns"`
	RefTable   string   `json:"ref_table" yaml:"ref_table"`
	RefSchema  string   `json:"ref_schema,omitempty" yaml:"ref_schema,omitempty"`
	RefColumns []string `json:"ref_columns" yaml:"ref_columns"`
	OnDelete   string   `json:"on_delete,omitempty" yaml:"on_delete,omitempty"` // CASCADE, SET NULL, NO ACTION, etc.
}
