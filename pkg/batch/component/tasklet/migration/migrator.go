package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

// migratorImpl implements Migrator on top of a pooled DBConnection.
type migratorImpl struct {
	dbConn database.DBConnection
	dbType string
}

// NewMigrator creates a new Migrator for dbConn.
func NewMigrator(dbConn database.DBConnection) Migrator {
	return &migratorImpl{
		dbConn: dbConn,
		dbType: dbConn.Type(),
	}
}

// migrateSession bundles a migrate instance with the resources that must be released after it.
// The pooled *sql.DB belongs to the DBConnection and is never closed here.
type migrateSession struct {
	instance *migrate.Migrate
	release  func()
}

// getDatabaseDriver builds the migrate driver for the connection's type.
// postgres and mysql run on a dedicated *sql.Conn so closing the driver leaves the pool open.
func (m *migratorImpl) getDatabaseDriver(ctx context.Context, tableName string) (migratedb.Driver, func(), error) {
	sqlDB, err := m.dbConn.GetSQLDB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	switch m.dbType {
	case "postgres":
		conn, err := sqlDB.Conn(ctx)
		if err != nil {
			return nil, nil, err
		}
		driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{MigrationsTable: tableName})
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		return driver, func() { driver.Close() }, nil
	case "mysql":
		conn, err := sqlDB.Conn(ctx)
		if err != nil {
			return nil, nil, err
		}
		driver, err := mysql.WithConnection(ctx, conn, &mysql.Config{MigrationsTable: tableName})
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		return driver, func() { driver.Close() }, nil
	case "sqlite":
		driver, err := sqlite3.WithInstance(sqlDB, &sqlite3.Config{MigrationsTable: tableName})
		if err != nil {
			return nil, nil, err
		}
		// sqlite3's Close would close the shared pool.
		return driver, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type for migration: %s", m.dbType)
	}
}

func (m *migratorImpl) open(ctx context.Context, migrationFS fs.FS, path string, tableName string) (*migrateSession, error) {
	sourceDriver, err := iofs.New(migrationFS, path)
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs source driver for path %s: %w", path, err)
	}

	dbDriver, releaseDB, err := m.getDatabaseDriver(ctx, tableName)
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	instance, err := migrate.NewWithInstance("iofs", sourceDriver, m.dbType, dbDriver)
	if err != nil {
		sourceDriver.Close()
		releaseDB()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return &migrateSession{
		instance: instance,
		release: func() {
			closeSource(sourceDriver)
			releaseDB()
		},
	}, nil
}

func closeSource(driver source.Driver) {
	if err := driver.Close(); err != nil {
		logger.Warnf("Failed to close migration source: %v", err)
	}
}

func (m *migratorImpl) runMigration(ctx context.Context, migrationFS fs.FS, path string, command string, tableName string) error {
	logger.Infof("Executing migration '%s' (DB: %s, Path: %s, Table: %s)", command, m.dbConn.Name(), path, tableName)

	session, err := m.open(ctx, migrationFS, path, tableName)
	if err != nil {
		return err
	}
	defer session.release()

	var migrateErr error
	switch command {
	case "up":
		migrateErr = session.instance.Up()
	case "down":
		migrateErr = session.instance.Down()
	default:
		return fmt.Errorf("unsupported migration command: %s", command)
	}

	if migrateErr != nil && !errors.Is(migrateErr, migrate.ErrNoChange) {
		if version, dirty, versionErr := session.instance.Version(); versionErr == nil {
			logger.Errorf("Migration '%s' failed at version %d (dirty: %t)", command, version, dirty)
		}
		return fmt.Errorf("migration failed for command '%s' (DB: %s, Path: %s): %w", command, m.dbType, path, migrateErr)
	}

	logger.Infof("Migration '%s' completed successfully.", command)
	return nil
}

func (m *migratorImpl) Up(ctx context.Context, migrationFS fs.FS, path string, tableName string) error {
	return m.runMigration(ctx, migrationFS, path, "up", tableName)
}

func (m *migratorImpl) Down(ctx context.Context, migrationFS fs.FS, path string, tableName string) error {
	return m.runMigration(ctx, migrationFS, path, "down", tableName)
}
