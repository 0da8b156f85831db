package filesystem

import (
	"embed"
	"io/fs"

	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

//go:embed resource
var rawFrameworkMigrationFS embed.FS

// ProvideFrameworkMigrationsFS returns the embedded run ledger migrations.
// The root holds one directory per database type (sqlite, postgres, mysql).
func ProvideFrameworkMigrationsFS() fs.FS {
	subFS, err := fs.Sub(rawFrameworkMigrationFS, "resource")
	if err != nil {
		logger.Fatalf("Failed to create subdirectory for framework migration FS: %v", err)
	}
	return subFS
}
