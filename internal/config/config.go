// Package config loads named database connections from YAML or TOML files
// or from DB_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/johndauphine/go-dm/internal/dialect"
	"github.com/johndauphine/go-dm/internal/driver"
	"github.com/johndauphine/go-dm/internal/logging"
)

// DefaultConnection is the connection name used when none is configured.
const DefaultConnection = "dm"

// Config holds all configuration for dmctl
type Config struct {
	// Default names the connection used when a command does not pick one.
	Default     string                      `yaml:"default" toml:"default"`
	Connections map[string]ConnectionConfig `yaml:"connections" toml:"connections"`
	Logging     LoggingConfig               `yaml:"logging" toml:"logging"`
}

// ConnectionConfig holds one database connection's settings
type ConnectionConfig struct {
	Driver   string `yaml:"driver" toml:"driver"` // "dm" (default), "postgres", "mssql" or "sqlite"
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	Database string `yaml:"database" toml:"database"`
	Schema   string `yaml:"schema" toml:"schema"` // Dameng: defaults to username
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
	Charset  string `yaml:"charset" toml:"charset"` // Dameng client charset (default: UTF8)
	Prefix   string `yaml:"prefix" toml:"prefix"`   // Table prefix applied by the schema builder

	// DateFormat is applied as NLS_DATE_FORMAT/NLS_TIMESTAMP_FORMAT after connecting.
	DateFormat string `yaml:"date_format" toml:"date_format"`
	// Session holds extra session variables set after connecting.
	Session map[string]string `yaml:"session" toml:"session"`
	// IdentifierMaxLength overrides the dialect's index name limit.
	IdentifierMaxLength int `yaml:"identifier_max_length" toml:"identifier_max_length"`

	SSLMode         string `yaml:"ssl_mode" toml:"ssl_mode"`                   // PostgreSQL: disable, require, verify-ca, verify-full (default: require)
	Encrypt         *bool  `yaml:"encrypt" toml:"encrypt"`                     // MSSQL (default: true)
	TrustServerCert bool   `yaml:"trust_server_cert" toml:"trust_server_cert"` // MSSQL: trust server certificate (default: false)
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level     string `yaml:"level" toml:"level"`   // debug, info, warn, error (default: info)
	Format    string `yaml:"format" toml:"format"` // text or json (default: text)
	File      string `yaml:"file" toml:"file"`     // Optional rotating log file
	MaxSizeMB int    `yaml:"max_size_mb" toml:"max_size_mb"`
}

// LoadOptions controls configuration loading behavior.
type LoadOptions struct {
	SuppressWarnings bool
}

// Load reads configuration from a YAML or TOML file.
func Load(path string) (*Config, error) {
	return LoadWithOptions(path, LoadOptions{})
}

// LoadWithOptions reads configuration from a file with options.
// Files ending in .toml are parsed as TOML, everything else as YAML.
func LoadWithOptions(path string, opts LoadOptions) (*Config, error) {
	path = expandTilde(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := parse(path, data)
	if err != nil {
		return nil, err
	}
	if !opts.SuppressWarnings && cfg.hasPasswords() && worldReadable(path) {
		logging.Warn("Config file %s holds passwords and is readable by other users; run: chmod 600 %s", path, path)
	}
	return cfg, nil
}

func parse(path string, data []byte) (*Config, error) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return LoadTOML(data)
	}
	return LoadBytes(data)
}

// LoadBytes reads configuration from YAML bytes.
func LoadBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return finish(&cfg)
}

// LoadTOML reads configuration from TOML bytes.
func LoadTOML(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return finish(&cfg)
}

// FromEnv builds a single "dm" connection from DB_HOST, DB_PORT,
// DB_DATABASE, DB_SCHEMA, DB_USERNAME, DB_PASSWORD, DB_CHARSET and
// DB_PREFIX. Unset variables take the Dameng defaults.
func FromEnv() (*Config, error) {
	conn := ConnectionConfig{
		Driver:   "dm",
		Host:     envOr("DB_HOST", "localhost"),
		Database: os.Getenv("DB_DATABASE"),
		Schema:   os.Getenv("DB_SCHEMA"),
		Username: os.Getenv("DB_USERNAME"),
		Password: os.Getenv("DB_PASSWORD"),
		Charset:  envOr("DB_CHARSET", "UTF8"),
		Prefix:   os.Getenv("DB_PREFIX"),
	}

	port, err := strconv.Atoi(envOr("DB_PORT", "5236"))
	if err != nil {
		return nil, fmt.Errorf("invalid value for DB_PORT: %w", err)
	}
	conn.Port = port

	cfg := &Config{
		Default:     DefaultConnection,
		Connections: map[string]ConnectionConfig{DefaultConnection: conn},
	}
	return finish(cfg)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func finish(cfg *Config) (*Config, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Connection returns the named connection, or the default when name is empty.
func (c *Config) Connection(name string) (ConnectionConfig, error) {
	if name == "" {
		name = c.Default
	}
	conn, ok := c.Connections[name]
	if !ok {
		return ConnectionConfig{}, fmt.Errorf("connection %q is not configured (available: %s)",
			name, strings.Join(c.ConnectionNames(), ", "))
	}
	return conn, nil
}

// ConnectionNames returns the configured connection names, sorted.
func (c *Config) ConnectionNames() []string {
	names := make([]string, 0, len(c.Connections))
	for name := range c.Connections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) applyDefaults() {
	if c.Default == "" {
		switch {
		case len(c.Connections) == 1:
			for name := range c.Connections {
				c.Default = name
			}
		default:
			c.Default = DefaultConnection
		}
	}

	for name, conn := range c.Connections {
		conn.applyDefaults()
		c.Connections[name] = conn
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	c.Logging.File = expandTilde(c.Logging.File)
}

// applyDefaults fills unset fields from the registered driver's defaults.
// Unknown drivers are left alone for validate to report.
func (cc *ConnectionConfig) applyDefaults() {
	if cc.Driver == "" {
		cc.Driver = "dm"
	}
	cc.Driver = driver.Canonicalize(cc.Driver)

	d, err := driver.Get(cc.Driver)
	if err != nil {
		return
	}
	defaults := d.Defaults()

	if cc.Host == "" {
		cc.Host = defaults.Host
	}
	if cc.Port == 0 {
		cc.Port = defaults.Port
	}
	if cc.Charset == "" {
		cc.Charset = defaults.Charset
	}
	if cc.DateFormat == "" {
		cc.DateFormat = defaults.DateFormat
	}
	if cc.SSLMode == "" {
		cc.SSLMode = defaults.SSLMode
	}
	if cc.Encrypt == nil && cc.Driver == "mssql" {
		enc := defaults.Encrypt
		cc.Encrypt = &enc
	}
	// Dameng leaves Schema empty; the connection falls back to the username.
	if cc.Schema == "" {
		cc.Schema = defaults.Schema
	}
	if cc.IdentifierMaxLength == 0 {
		cc.IdentifierMaxLength = d.Dialect().MaxIdentifierLength()
	}
	if cc.Driver == "sqlite" {
		cc.Database = expandTilde(cc.Database)
	}
}

func (c *Config) validate() error {
	if len(c.Connections) == 0 {
		return fmt.Errorf("missing required connections section")
	}
	if _, ok := c.Connections[c.Default]; !ok {
		return fmt.Errorf("default connection %q is not configured", c.Default)
	}

	for _, name := range c.ConnectionNames() {
		if err := c.Connections[name].validate(); err != nil {
			return fmt.Errorf("connections.%s: %w", name, err)
		}
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got '%s'", c.Logging.Format)
	}
	return nil
}

func (cc ConnectionConfig) validate() error {
	if !driver.IsRegistered(cc.Driver) {
		return fmt.Errorf("driver must be one of %v, got '%s'", dialect.Names(), cc.Driver)
	}
	if cc.Port < 0 || cc.Port > 65535 {
		return fmt.Errorf("invalid value for port: %d", cc.Port)
	}
	if cc.IdentifierMaxLength < 0 {
		return fmt.Errorf("invalid value for identifier_max_length: %d", cc.IdentifierMaxLength)
	}

	switch cc.Driver {
	case "dm":
		if cc.Username == "" {
			return fmt.Errorf("username is required")
		}
	case "postgres", "mssql":
		if cc.Database == "" {
			return fmt.Errorf("database is required")
		}
	}
	return nil
}

// DSNOptions returns the driver-specific options passed to Dialect.BuildDSN.
func (cc ConnectionConfig) DSNOptions() map[string]any {
	opts := map[string]any{}
	if cc.Schema != "" {
		opts["schema"] = cc.Schema
	}
	if cc.SSLMode != "" {
		opts["sslmode"] = cc.SSLMode
	}
	if cc.Encrypt != nil {
		opts["encrypt"] = *cc.Encrypt
	}
	if cc.TrustServerCert {
		opts["trustServerCertificate"] = true
	}
	if cc.Driver == "sqlite" {
		opts["foreign_keys"] = true
	}
	return opts
}

// Dialect returns the connection's SQL dialect.
func (cc ConnectionConfig) Dialect() (driver.Dialect, error) {
	return dialect.MustGet(cc.Driver)
}

// Sanitized returns a copy of the config with sensitive fields redacted
func (c *Config) Sanitized() *Config {
	sanitized := *c // shallow copy

	sanitized.Connections = make(map[string]ConnectionConfig, len(c.Connections))
	for name, conn := range c.Connections {
		sanitized.Connections[name] = conn.Sanitized()
	}
	return &sanitized
}

// Sanitized returns a copy of the connection with the password redacted.
func (cc ConnectionConfig) Sanitized() ConnectionConfig {
	if cc.Password != "" {
		cc.Password = "[REDACTED]"
	}
	return cc
}

// expandTilde expands ~ or ~/ at the start of a path to the user's home directory
func expandTilde(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
