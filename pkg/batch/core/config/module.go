package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts *LoggingConfig from *Config so components can depend on it alone.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.App.System.Logging
}

// NewPipelineConfigProvider extracts the data policies.
func NewPipelineConfigProvider(cfg *Config) *PipelineConfig {
	return &cfg.App.Pipeline
}

// Module provides *Config and the configuration-derived components to Fx.
var Module = fx.Options(
	fx.Provide(NewConfigProvider),
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(NewPipelineConfigProvider),
	fx.Provide(func() EnvironmentExpander {
		return NewOsEnvironmentExpander()
	}),
)
