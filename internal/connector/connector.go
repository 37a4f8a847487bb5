// Package connector opens database/sql handles for configured connections.
package connector

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/johndauphine/go-dm/internal/config"
	"github.com/johndauphine/go-dm/internal/driver"
	"github.com/johndauphine/go-dm/internal/logging"
	"github.com/johndauphine/go-dm/internal/stats"
)

// DSN builds the connection string for cfg using its driver's dialect.
// Host and port fall back to the driver defaults when unset.
func DSN(cfg config.ConnectionConfig) (string, error) {
	d, err := resolve(&cfg)
	if err != nil {
		return "", err
	}
	return buildDSN(d, cfg), nil
}

func buildDSN(d driver.Driver, cfg config.ConnectionConfig) string {
	return d.Dialect().BuildDSN(cfg.Host, cfg.Port, cfg.Database, cfg.Username, cfg.Password, cfg.DSNOptions())
}

// Open returns a handle for cfg without contacting the database.
func Open(cfg config.ConnectionConfig) (*sql.DB, error) {
	d, err := resolve(&cfg)
	if err != nil {
		return nil, err
	}
	return open(d, cfg)
}

// open expects cfg to be resolved already.
func open(d driver.Driver, cfg config.ConnectionConfig) (*sql.DB, error) {
	db, err := sql.Open(d.SQLDriverName(), buildDSN(d, cfg))
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", d.Name(), err)
	}
	return db, nil
}

// Connect opens a handle for cfg and verifies it with a ping. Messages
// name the resolved driver and address.
func Connect(ctx context.Context, cfg config.ConnectionConfig) (*sql.DB, error) {
	d, err := resolve(&cfg)
	if err != nil {
		return nil, err
	}
	db, err := open(d, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s at %s: %w", cfg.Driver, address(cfg), err)
	}
	logging.Debug("Connected to %s at %s (%s)", cfg.Driver, address(cfg), stats.FromDB(cfg.Driver, db))
	return db, nil
}

// resolve looks up the driver and fills the settings a connection cannot
// be opened without. Everything else is the config package's job.
func resolve(cfg *config.ConnectionConfig) (driver.Driver, error) {
	if cfg.Driver == "" {
		cfg.Driver = "dm"
	}
	d, err := driver.Get(cfg.Driver)
	if err != nil {
		return nil, err
	}
	cfg.Driver = d.Name()
	defaults := d.Defaults()
	if cfg.Host == "" {
		cfg.Host = defaults.Host
	}
	if cfg.Port == 0 {
		cfg.Port = defaults.Port
	}
	if cfg.Charset == "" {
		cfg.Charset = defaults.Charset
	}
	return d, nil
}

func address(cfg config.ConnectionConfig) string {
	if cfg.Driver == "sqlite" {
		return cfg.Database
	}
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}
