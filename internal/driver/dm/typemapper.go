package dm

import (
	"fmt"
	"strings"

	"github.com/johndauphine/go-dm/internal/driver"
)

// TypeMapper implements driver.TypeMapper for Dameng.
type TypeMapper struct{}

// MapType renders the Dameng DDL type for a blueprint column.
// Auto-increment columns carry their identity and primary key clauses.
func (m *TypeMapper) MapType(col driver.Column) string {
	base := m.baseType(col)
	if col.AutoIncrement && col.IsIntegerType() {
		return base + " IDENTITY(1,1) PRIMARY KEY"
	}
	return base
}

func (m *TypeMapper) baseType(col driver.Column) string {
	switch col.Type {
	case driver.TypeString:
		return fmt.Sprintf("VARCHAR(%d)", col.Length)
	case driver.TypeChar:
		return fmt.Sprintf("CHAR(%d)", col.Length)
	case driver.TypeNVarchar2:
		return fmt.Sprintf("NVARCHAR2(%d)", col.Length)
	case driver.TypeText:
		return "TEXT"
	case driver.TypeInteger:
		return "INT"
	case driver.TypeBigInteger:
		return "BIGINT"
	case driver.TypeSmallInt:
		return "SMALLINT"
	case driver.TypeBoolean:
		return "BIT"
	case driver.TypeDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", col.Total, col.Places)
	case driver.TypeFloat:
		return "DOUBLE"
	case driver.TypeDate:
		return "DATE"
	case driver.TypeDateTime, driver.TypeTimestamp:
		return withPrecision("TIMESTAMP", col.Precision, "")
	case driver.TypeDateTimeTz, driver.TypeTimestampTz:
		return withPrecision("TIMESTAMP", col.Precision, " WITH TIME ZONE")
	case driver.TypeBinary:
		return "BLOB"
	case driver.TypeJSON:
		return "CLOB"
	case driver.TypeUUID:
		return "CHAR(36)"
	default:
		return strings.ToUpper(col.Type)
	}
}

func withPrecision(name string, precision *int, suffix string) string {
	if precision == nil {
		return name + suffix
	}
	return fmt.Sprintf("%s(%d)%s", name, *precision, suffix)
}
