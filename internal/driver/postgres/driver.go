// Package postgres registers PostgreSQL, reached through pgx's database/sql
// driver. Schema DDL and rewrites built for Dameng can be checked against a
// Postgres instance with it.
package postgres

import (
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"

	"github.com/johndauphine/go-dm/internal/driver"
)

func init() {
	driver.Register(&Driver{})
}

// Driver implements driver.Driver for PostgreSQL.
type Driver struct{}

func (d *Driver) Name() string { return "postgres" }

func (d *Driver) Aliases() []string { return []string{"postgresql", "pg"} }

// Defaults uses the public schema and requires TLS unless configured otherwise.
func (d *Driver) Defaults() driver.DriverDefaults {
	return driver.DriverDefaults{Host: "localhost", Port: 5432, Schema: "public", SSLMode: "require"}
}

func (d *Driver) Dialect() driver.Dialect { return &Dialect{} }

func (d *Driver) TypeMapper() driver.TypeMapper { return &TypeMapper{} }

func (d *Driver) SQLDriverName() string { return "pgx" }
