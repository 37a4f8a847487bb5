package sqlite

import (
	"strings"

	"github.com/johndauphine/go-dm/internal/driver"
)

// TypeMapper implements driver.TypeMapper for SQLite using its type affinities.
type TypeMapper struct{}

func (m *TypeMapper) MapType(col driver.Column) string {
	if col.AutoIncrement && col.IsIntegerType() {
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	switch col.Type {
	case driver.TypeString, driver.TypeChar, driver.TypeNVarchar2, driver.TypeText,
		driver.TypeJSON, driver.TypeUUID:
		return "TEXT"
	case driver.TypeInteger, driver.TypeBigInteger, driver.TypeSmallInt, driver.TypeBoolean:
		return "INTEGER"
	case driver.TypeDecimal:
		return "NUMERIC"
	case driver.TypeFloat:
		return "REAL"
	case driver.TypeDate, driver.TypeDateTime, driver.TypeDateTimeTz,
		driver.TypeTimestamp, driver.TypeTimestampTz:
		return "DATETIME"
	case driver.TypeBinary:
		return "BLOB"
	default:
		return strings.ToUpper(col.Type)
	}
}
