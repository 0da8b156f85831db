package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database"
)

// Module provides the connection resolver. Concrete providers come from the dialect packages.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewGormDBConnectionResolver,
		fx.As(new(database.DBConnectionResolver)),
	)),
	fx.Invoke(func(lc fx.Lifecycle, resolver database.DBConnectionResolver) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if closer, ok := resolver.(interface{ CloseAll() error }); ok {
					return closer.CloseAll()
				}
				return nil
			},
		})
	}),
)
