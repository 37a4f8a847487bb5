// Package driver provides pluggable database dialect abstractions.
// Each database (Dameng, PostgreSQL, MSSQL, SQLite) implements the Driver
// interface to provide its connection defaults, SQL dialect and DDL type
// mapping in one cohesive unit.
package driver

// DriverDefaults contains default values for a database driver.
// Used by config.applyDefaults() to set sensible defaults for each database type.
type DriverDefaults struct {
	// Host is the default host (e.g., "localhost").
	Host string

	// Port is the default port (e.g., 5236 for Dameng, 5432 for PostgreSQL).
	Port int

	// Schema is the default schema. Empty means "use the login user's schema".
	Schema string

	// Charset is the default client character set (Dameng only).
	Charset string

	// SSLMode is the default SSL mode for PostgreSQL-style connections.
	SSLMode string

	// Encrypt is the default encryption setting for MSSQL-style connections.
	Encrypt bool

	// DateFormat is the session date format applied after connecting.
	// Empty means the driver has no session date format.
	DateFormat string
}

// Driver represents a pluggable database driver that provides all
// database-specific functionality in one cohesive unit.
//
// To add a new database:
// 1. Create a package under internal/driver/<dbname>/
// 2. Implement the Driver interface
// 3. Register via init(): driver.Register(&MyDriver{})
type Driver interface {
	// Name returns the primary driver name (e.g., "dm", "postgres", "mssql").
	Name() string

	// Aliases returns alternative names for this driver.
	// For example, dm has the aliases ["dameng", "dm8"].
	Aliases() []string

	// Defaults returns the default configuration values for this driver.
	// Used by config.applyDefaults() to avoid hardcoding database-specific defaults.
	Defaults() DriverDefaults

	// Dialect returns the SQL dialect for this database.
	Dialect() Dialect

	// TypeMapper returns the mapper from blueprint column types to DDL types.
	TypeMapper() TypeMapper

	// SQLDriverName returns the database/sql driver name used by sql.Open.
	// The dm driver expects the application to import the native Dameng
	// driver, which registers itself as "dm".
	SQLDriverName() string
}
