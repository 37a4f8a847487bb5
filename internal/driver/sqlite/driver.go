// Package sqlite provides the SQLite driver implementation backed by the
// pure-Go modernc.org/sqlite engine. It registers itself with the driver
// registry on import.
package sqlite

import (
	// modernc.org/sqlite registers itself with database/sql as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/johndauphine/go-dm/internal/driver"
)

func init() {
	driver.Register(&Driver{})
}

// Driver implements driver.Driver for SQLite databases.
type Driver struct{}

func (d *Driver) Name() string { return "sqlite" }

func (d *Driver) Aliases() []string { return []string{"sqlite3"} }

// Defaults returns empty defaults; SQLite connections are file paths.
func (d *Driver) Defaults() driver.DriverDefaults {
	return driver.DriverDefaults{}
}

func (d *Driver) Dialect() driver.Dialect { return &Dialect{} }

func (d *Driver) TypeMapper() driver.TypeMapper { return &TypeMapper{} }

func (d *Driver) SQLDriverName() string { return "sqlite" }
