package mssql

import (
	"fmt"
	"strings"

	"github.com/johndauphine/go-dm/internal/driver"
)

// TypeMapper implements driver.TypeMapper for SQL Server.
type TypeMapper struct{}

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
		return varLength("VARCHAR", col.Length, 8000)
	case driver.TypeNVarchar2:
		return varLength("NVARCHAR", col.Length, 4000)
	case driver.TypeChar:
		return fmt.Sprintf("CHAR(%d)", col.Length)
	case driver.TypeText, driver.TypeJSON:
		return "NVARCHAR(MAX)"
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
		return "FLOAT"
	case driver.TypeDate:
		return "DATE"
	case driver.TypeDateTime, driver.TypeTimestamp:
		return withPrecision("DATETIME2", col.Precision)
	case driver.TypeDateTimeTz, driver.TypeTimestampTz:
		return withPrecision("DATETIMEOFFSET", col.Precision)
	case driver.TypeBinary:
		return "VARBINARY(MAX)"
	case driver.TypeUUID:
		return "UNIQUEIDENTIFIER"
	default:
		return strings.ToUpper(col.Type)
	}
}

// varLength falls back to MAX when length exceeds the inline limit.
func varLength(name string, length, limit int) string {
	if length <= 0 || length > limit {
		return name + "(MAX)"
	}
	return fmt.Sprintf("%s(%d)", name, length)
}

func withPrecision(name string, precision *int) string {
	if precision == nil {
		return name
	}
	return fmt.Sprintf("%s(%d)", name, *precision)
}
