package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/taxiweather/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/taxiweather/pkg/batch/core/adapter"
)

// DBExecutor defines the common write and read operations for a database.
type DBExecutor interface {
	// ExecuteUpdate performs a write operation (CREATE, UPDATE, DELETE).
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)

	// ExecuteQuery executes a read operation (SELECT) into target.
	ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error

	// ExecuteQueryAdvanced executes a read operation with optional sorting and limiting.
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error

	// Count counts the number of records matching the query.
	Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error)

	// Pluck retrieves the distinct values of a column.
	Pluck(ctx context.Context, model interface{}, column string, target interface{}, query map[string]interface{}) error
}

// DBConnection represents an abstraction of a database connection.
type DBConnection interface {
	coreAdapter.ResourceConnection // Embeds Type(), Name(), Close()
	DBExecutor

	// ReplaceTable drops the model's table if it exists, recreates it from the model and inserts rows
	// in batches of batchSize, all inside one transaction. rows must be a slice of the model type.
	ReplaceTable(ctx context.Context, model interface{}, rows interface{}, batchSize int) (rowsAffected int64, err error)
	// HasTable reports whether the model's table exists.
	HasTable(ctx context.Context, model interface{}) (bool, error)
	// IsTableNotExistError checks if the given error indicates that a table does not exist.
	IsTableNotExistError(err error) bool
	// RefreshConnection pings the connection pool.
	RefreshConnection(ctx context.Context) error
	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB connection.
	GetSQLDB() (*sql.DB, error)
}

// DBConnectionResolver resolves a database connection instance by its configured name.
type DBConnectionResolver interface {
	coreAdapter.ResourceConnectionResolver

	// ResolveDBConnection returns a live connection for name, reconnecting if the pool fails a ping.
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProvider provides database connections of one database type based on configuration.
type DBProvider interface {
	// GetConnection retrieves a database connection with the specified name.
	GetConnection(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the database type handled by this provider (e.g., "sqlite", "postgres").
	Type() string
	// ForceReconnect closes and re-establishes the connection with the specified name.
	ForceReconnect(name string) (DBConnection, error)
}

// DBProviderGroup is the Fx group name collecting all DBProvider implementations.
const DBProviderGroup = "db_providers"
