// Package dialect registers every built-in driver and resolves dialects by
// driver name or alias. Importing it is enough to make dm, postgres, mssql
// and sqlite available through the driver registry.
package dialect

import (
	"fmt"

	"github.com/johndauphine/go-dm/internal/driver"
	// Import driver packages to register dialects
	_ "github.com/johndauphine/go-dm/internal/driver/dm"
	_ "github.com/johndauphine/go-dm/internal/driver/mssql"
	_ "github.com/johndauphine/go-dm/internal/driver/postgres"
	_ "github.com/johndauphine/go-dm/internal/driver/sqlite"
)

// Dialect is an alias for driver.Dialect.
type Dialect = driver.Dialect

// GetDialect returns the dialect for the given database type, or nil.
func GetDialect(dbType string) Dialect {
	return driver.GetDialect(dbType)
}

// MustGet returns the dialect for dbType or an error naming the
// available drivers.
func MustGet(dbType string) (Dialect, error) {
	d, err := driver.Get(dbType)
	if err != nil {
		return nil, fmt.Errorf("dialect: %w", err)
	}
	return d.Dialect(), nil
}

// Names returns the primary names of all registered drivers.
func Names() []string {
	return driver.Available()
}
