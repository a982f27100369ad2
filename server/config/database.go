package config

import "github.com/zeromove/move-studio-api/storage"

type DatabaseConfig struct {
	Driver     string `default:"sqlite"`
	DSN        string
	URL        string `envconfig:"DATABASE_URL"`
	SqlitePath string `default:"./studio.db"`
}

// ConnectionString is the PostgreSQL DSN, taken from DATABASE_URL when no DSN is set.
func (c DatabaseConfig) ConnectionString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return c.URL
}

// IsPostgreSQL is true when PostgreSQL was requested, either by driver name or by
// providing a connection string.
func (c DatabaseConfig) IsPostgreSQL() bool {
	return c.Driver == storage.PostgreSQL || c.ConnectionString() != ""
}

// DriverName is the driver the project store is opened with.
func (c DatabaseConfig) DriverName() string {
	if c.IsPostgreSQL() {
		return storage.PostgreSQL
	}
	return storage.Sqlite
}
