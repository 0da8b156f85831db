// Package config holds the connection settings decoded from the "database" section of the configuration.
package config

import (
	"fmt"

	"github.com/tigerroll/taxiweather/pkg/batch/support/util/configbinder"
)

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Type     string     `yaml:"type"`             // Database type ("sqlite", "postgres", "mysql").
	Host     string     `yaml:"host"`             // Database host address.
	Port     int        `yaml:"port"`             // Database port number.
	Database string     `yaml:"database"`         // Database name, or the file path for SQLite.
	User     string     `yaml:"user"`             // Database user.
	Password string     `yaml:"password"`         // Database password.
	Schema   string     `yaml:"schema,omitempty"` // Schema name for PostgreSQL.
	Sslmode  string     `yaml:"sslmode"`          // SSL mode for the connection.
	SQLLevel string     `yaml:"sql_level"`        // GORM log level; falls back to system.logging.sql_level.
	Pool     PoolConfig `yaml:"pool"`             // Connection pool settings.
}

// Decode reads the named entry out of the raw "database" section.
func Decode(rawConfigs map[string]interface{}, name string) (DatabaseConfig, error) {
	var dbConfig DatabaseConfig
	rawConfig, ok := rawConfigs[name]
	if !ok {
		return dbConfig, fmt.Errorf("database configuration '%s' not found", name)
	}
	props, ok := rawConfig.(map[string]interface{})
	if !ok {
		return dbConfig, fmt.Errorf("database configuration '%s' has unexpected format %T", name, rawConfig)
	}
	if err := configbinder.BindProperties(props, &dbConfig); err != nil {
		return dbConfig, fmt.Errorf("failed to decode database config for '%s': %w", name, err)
	}
	if dbConfig.Type == "" {
		return dbConfig, fmt.Errorf("database configuration '%s' has no type", name)
	}
	return dbConfig, nil
}
