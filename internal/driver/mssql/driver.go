// Package mssql registers Microsoft SQL Server through go-mssqldb.
package mssql

import (
	_ "github.com/microsoft/go-mssqldb" // registers "sqlserver"

	"github.com/johndauphine/go-dm/internal/driver"
)

func init() {
	driver.Register(&Driver{})
}

// Driver implements driver.Driver for SQL Server.
type Driver struct{}

func (d *Driver) Name() string { return "mssql" }

func (d *Driver) Aliases() []string { return []string{"sqlserver", "sql-server"} }

// Defaults uses the dbo schema with encryption on.
func (d *Driver) Defaults() driver.DriverDefaults {
	return driver.DriverDefaults{Host: "localhost", Port: 1433, Schema: "dbo", Encrypt: true}
}

func (d *Driver) Dialect() driver.Dialect { return &Dialect{} }

func (d *Driver) TypeMapper() driver.TypeMapper { return &TypeMapper{} }

func (d *Driver) SQLDriverName() string { return "sqlserver" }
