// Package dm provides the Dameng (DM8) driver implementation.
// It registers itself with the driver registry on import.
//
// The package does not import a database/sql driver. Applications that
// open Dameng connections import the native driver, which registers
// itself under the name "dm".
package dm

import "github.com/johndauphine/go-dm/internal/driver"

func init() {
	driver.Register(&Driver{})
}

// Default connection values used when a connection leaves them unset.
const (
	DefaultHost       = "localhost"
	DefaultPort       = 5236
	DefaultCharset    = "UTF8"
	DefaultDateFormat = "YYYY-MM-DD HH24:MI:SS"
)

// Driver implements driver.Driver for Dameng databases.
type Driver struct{}

// Name returns the primary driver name.
func (d *Driver) Name() string {
	return "dm"
}

// Aliases returns alternative names for this driver.
func (d *Driver) Aliases() []string {
	return []string{"dameng", "dm8"}
}

// Defaults returns the default configuration values for Dameng.
// Schema is left empty so the connection falls back to the login user.
func (d *Driver) Defaults() driver.DriverDefaults {
	return driver.DriverDefaults{
		Host:       DefaultHost,
		Port:       DefaultPort,
		Charset:    DefaultCharset,
		DateFormat: DefaultDateFormat,
	}
}

// Dialect returns the Dameng dialect.
func (d *Driver) Dialect() driver.Dialect {
	return &Dialect{}
}

// TypeMapper returns the Dameng type mapper.
func (d *Driver) TypeMapper() driver.TypeMapper {
	return &TypeMapper{}
}

// SQLDriverName returns the name the native Dameng driver registers with database/sql.
func (d *Driver) SQLDriverName() string {
	return "dm"
}
