package migration_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database"
	gormadapter "github.com/tigerroll/taxiweather/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/taxiweather/pkg/batch/component/tasklet/migration"
	"github.com/tigerroll/taxiweather/pkg/batch/component/tasklet/migration/filesystem"
	"github.com/tigerroll/taxiweather/pkg/batch/core/config"
)

func newResolver(t *testing.T) database.DBConnectionResolver {
	t.Helper()
	cfg := config.NewConfig()
	cfg.App.DatabaseConfigs = map[string]interface{}{
		"output": map[string]interface{}{
			"type":     "sqlite",
			"database": filepath.Join(t.TempDir(), "ledger.db"),
		},
	}
	resolver := gormadapter.NewGormDBConnectionResolver(gormadapter.DBConnectionResolverParams{
		DBProviders: []database.DBProvider{sqlite.NewProvider(cfg)},
		Cfg:         cfg,
	})
	t.Cleanup(func() { _ = resolver.CloseAll() })
	return resolver
}

func tableExists(t *testing.T, conn database.DBConnection, name string) bool {
	t.Helper()
	sqlDB, err := conn.GetSQLDB()
	require.NoError(t, err)
	var count int
	require.NoError(t, sqlDB.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count))
	return count == 1
}

func TestMigrateJobRepository_CreatesLedgerTables(t *testing.T) {
	ctx := context.Background()
	resolver := newResolver(t)
	migrationFS := filesystem.ProvideFrameworkMigrationsFS()

	require.NoError(t, migration.MigrateJobRepository(ctx, resolver, "output", migrationFS))
	// A second run has nothing to apply.
	require.NoError(t, migration.MigrateJobRepository(ctx, resolver, "output", migrationFS))

	conn, err := resolver.ResolveDBConnection(ctx, "output")
	require.NoError(t, err)
	assert.True(t, tableExists(t, conn, "batch_job_execution"))
	assert.True(t, tableExists(t, conn, "batch_step_execution"))
	assert.True(t, tableExists(t, conn, migration.FrameworkMigrationsTable))

	// The pooled connection stays usable after migrating.
	assert.NoError(t, conn.RefreshConnection(ctx))
}

func TestMigrator_Down(t *testing.T) {
	ctx := context.Background()
	resolver := newResolver(t)
	migrationFS := filesystem.ProvideFrameworkMigrationsFS()

	conn, err := resolver.ResolveDBConnection(ctx, "output")
	require.NoError(t, err)

	m := migration.NewMigrator(conn)
	require.NoError(t, m.Up(ctx, migrationFS, "sqlite", migration.FrameworkMigrationsTable))
	require.NoError(t, m.Down(ctx, migrationFS, "sqlite", migration.FrameworkMigrationsTable))

	assert.False(t, tableExists(t, conn, "batch_job_execution"))
	assert.False(t, tableExists(t, conn, "batch_step_execution"))
}

func TestMigrateJobRepository_UnknownConnection(t *testing.T) {
	err := migration.MigrateJobRepository(context.Background(), newResolver(t), "absent", filesystem.ProvideFrameworkMigrationsFS())
	require.Error(t, err)
}
