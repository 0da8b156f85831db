package local

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/taxiweather/pkg/batch/adapter/storage"
)

// Module provides the LocalProvider to the storage_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLocalProvider,
		fx.ResultTags(`group:"`+storageAdapter.StorageProviderGroup+`"`),
	)),
)
