package driver

// TypeMapper renders blueprint column types as database DDL types.
type TypeMapper interface {
	// MapType returns the DDL type for the column, e.g. "VARCHAR(8188)".
	MapType(col Column) string
}

// Blueprint column types understood by every TypeMapper.
const (
	TypeString      = "string"
	TypeChar        = "char"
	TypeNVarchar2   = "nvarchar2"
	TypeText        = "text"
	TypeInteger     = "integer"
	TypeBigInteger  = "bigInteger"
	TypeSmallInt    = "smallInteger"
	TypeBoolean     = "boolean"
	TypeDecimal     = "decimal"
	TypeFloat       = "float"
	TypeDate        = "date"
	TypeDateTime    = "dateTime"
	TypeDateTimeTz  = "dateTimeTz"
	TypeTimestamp   = "timestamp"
	TypeTimestampTz = "timestampTz"
	TypeBinary      = "binary"
	TypeJSON        = "json"
	TypeUUID        = "uuid"
)
