package usecase

import (
	"go.uber.org/fx"
)

// LauncherModule provides the JobLauncher over the registered jobs.
var LauncherModule = fx.Options(
	fx.Provide(NewSimpleJobLauncher),
	fx.Provide(func(launcher *SimpleJobLauncher) JobLauncher { return launcher }),
)

// ExplorerModule provides the JobExplorer. It needs only a JobRepository.
var ExplorerModule = fx.Options(
	fx.Provide(fx.Annotate(
		NewSimpleJobExplorer,
		fx.As(new(JobExplorer)),
	)),
)
