package migration

import (
	"context"
	"io/fs"
)

// FrameworkMigrationsTable tracks the versions applied to the run ledger schema.
const FrameworkMigrationsTable = "batch_framework_migrations"

// Migrator handles database schema migrations.
type Migrator interface {
	// Up applies all pending migrations found under path in migrationFS.
	// tableName is the table recording the applied versions.
	Up(ctx context.Context, migrationFS fs.FS, path string, tableName string) error
	// Down rolls back all applied migrations.
	Down(ctx context.Context, migrationFS fs.FS, path string, tableName string) error
}
