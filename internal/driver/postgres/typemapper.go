package postgres

import (
	"fmt"
	"strings"

	"github.com/johndauphine/go-dm/internal/driver"
)

// TypeMapper implements driver.TypeMapper for PostgreSQL.
type TypeMapper struct{}

func (m *TypeMapper) MapType(col driver.Column) string {
	if col.AutoIncrement {
		switch col.Type {
		case driver.TypeBigInteger:
			return "BIGSERIAL PRIMARY KEY"
		case driver.TypeSmallInt:
			return "SMALLSERIAL PRIMARY KEY"
		case driver.TypeInteger:
			return "SERIAL PRIMARY KEY"
		}
	}

	switch col.Type {
	case driver.TypeString, driver.TypeNVarchar2:
		return fmt.Sprintf("VARCHAR(%d)", col.Length)
	case driver.TypeChar:
		return fmt.Sprintf("CHAR(%d)", col.Length)
	case driver.TypeText:
		return "TEXT"
	case driver.TypeInteger:
		return "INTEGER"
	case driver.TypeBigInteger:
		return "BIGINT"
	case driver.TypeSmallInt:
		return "SMALLINT"
	case driver.TypeBoolean:
		return "BOOLEAN"
	case driver.TypeDecimal:
		return fmt.Sprintf("NUMERIC(%d,%d)", col.Total, col.Places)
	case driver.TypeFloat:
		return "DOUBLE PRECISION"
	case driver.TypeDate:
		return "DATE"
	case driver.TypeDateTime, driver.TypeTimestamp:
		return timestamp(col.Precision, "WITHOUT")
	case driver.TypeDateTimeTz, driver.TypeTimestampTz:
		return timestamp(col.Precision, "WITH")
	case driver.TypeBinary:
		return "BYTEA"
	case driver.TypeJSON:
		return "JSONB"
	case driver.TypeUUID:
		return "UUID"
	default:
		return strings.ToUpper(col.Type)
	}
}

func timestamp(precision *int, zone string) string {
	if precision == nil {
		return "TIMESTAMP " + zone + " TIME ZONE"
	}
	return fmt.Sprintf("TIMESTAMP(%d) %s TIME ZONE", *precision, zone)
}
