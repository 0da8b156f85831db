// Package migration applies the embedded run ledger schema with golang-migrate.
package migration

import (
	"context"
	"io/fs"

	"go.uber.org/fx"

	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database"
	"github.com/tigerroll/taxiweather/pkg/batch/component/tasklet/migration/filesystem"
	config "github.com/tigerroll/taxiweather/pkg/batch/core/config"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

// MigrateJobRepository brings the run ledger schema on the job repository connection up to date.
// Migrations are read from the directory named after the connection's database type.
func MigrateJobRepository(ctx context.Context, resolver database.DBConnectionResolver, dbRef string, migrationFS fs.FS) error {
	conn, err := resolver.ResolveDBConnection(ctx, dbRef)
	if err != nil {
		return exception.NewPersistenceError("migration", "failed to resolve job repository connection", err)
	}
	if err := NewMigrator(conn).Up(ctx, migrationFS, conn.Type(), FrameworkMigrationsTable); err != nil {
		return exception.NewPersistenceError("migration", "failed to migrate job repository schema", err)
	}
	return nil
}

// runMigrationsParams defines the dependencies of registerMigrationHook.
type runMigrationsParams struct {
	fx.In
	Lifecycle   fx.Lifecycle
	Resolver    database.DBConnectionResolver
	Cfg         *config.Config
	MigrationFS fs.FS `name:"frameworkMigrationsFS"`
}

func registerMigrationHook(p runMigrationsParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			dbRef := p.Cfg.App.Infrastructure.JobRepositoryDBRef
			logger.Debugf("Migrating job repository on connection '%s'.", dbRef)
			return MigrateJobRepository(ctx, p.Resolver, dbRef, p.MigrationFS)
		},
	})
}

// Module migrates the run ledger when the application starts.
// Include it before any module whose OnStart hook writes to the ledger.
var Module = fx.Options(
	filesystem.Module,
	fx.Invoke(registerMigrationHook),
)
