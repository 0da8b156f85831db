// Package config provides the configuration structures for taxiweather and the loader that
// assembles them from defaults, the embedded application.yaml, a .env file and the environment.
package config

// EmbeddedConfig holds the raw bytes of the application.yaml compiled into the binary.
type EmbeddedConfig []byte

// LogLevel names a logging verbosity. It is shared by the application logger and the GORM logger.
type LogLevel string

const (
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelSilent LogLevel = "SILENT"
)

// InvalidTimestampPolicy controls what happens to rows whose timestamp cannot be parsed.
type InvalidTimestampPolicy string

// InvalidTimestampsExclude coerces unparseable timestamps to null and drops the affected rows
// from every grouping that needs the timestamp.
const InvalidTimestampsExclude InvalidTimestampPolicy = "exclude"

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the application log level (DEBUG, INFO, WARN, ERROR).
	Level string `yaml:"level" validate:"omitempty,oneof=TRACE DEBUG INFO WARN WARNING ERROR FATAL trace debug info warn warning error fatal"`
	// SQLLevel is the GORM log level (SILENT, ERROR, WARN, INFO).
	SQLLevel string `yaml:"sql_level"`
}

// SystemConfig holds process-wide settings.
type SystemConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// InfrastructureConfig names the connections used by infrastructure components.
type InfrastructureConfig struct {
	// JobRepositoryDBRef is the database connection holding the run ledger.
	JobRepositoryDBRef string `yaml:"job_repository_db_ref" validate:"required"`
	// OutputDBRef is the database connection holding the taxi_trips table.
	OutputDBRef string `yaml:"output_db_ref" validate:"required"`
	// InputStorageRef is the storage connection the raw loader reads from.
	InputStorageRef string `yaml:"input_storage_ref" validate:"required"`
	// ExportStorageRef is the storage connection the parquet export writes to.
	ExportStorageRef string `yaml:"export_storage_ref"`
}

// MetricsConfig configures the Prometheus recorder.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Textfile, when set, receives the registry in text format after each ETL run
	// (for the node_exporter textfile collector).
	Textfile string `yaml:"textfile"`
}

// OTLPConfig configures an OpenTelemetry exporter.
type OTLPConfig struct {
	Enabled bool `yaml:"enabled"`
	// Exporter is "otlphttp" or "otlpgrpc".
	Exporter string `yaml:"exporter" validate:"omitempty,oneof=otlphttp otlpgrpc"`
	// Endpoint is host:port of the collector. Empty uses the exporter default.
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `yaml:"service_name"`
}

// ObservabilityConfig groups metrics and tracing settings.
type ObservabilityConfig struct {
	Metrics     MetricsConfig `yaml:"metrics"`
	Tracing     OTLPConfig    `yaml:"tracing"`
	OTelMetrics OTLPConfig    `yaml:"otel_metrics"`
}

// DashboardConfig configures the HTTP dashboard.
type DashboardConfig struct {
	Addr                   string `yaml:"addr" validate:"required"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds" validate:"gte=0"`
}

// JobConfig describes the ETL job: its name and per-step properties.
type JobConfig struct {
	Name string `yaml:"name" validate:"required"`
	// Steps maps a step name to the properties bound onto that step's configuration struct.
	Steps map[string]map[string]interface{} `yaml:"steps"`
}

// PipelineConfig holds data policies applied by the pipeline.
type PipelineConfig struct {
	InvalidTimestamps InvalidTimestampPolicy `yaml:"invalid_timestamps" validate:"required,oneof=exclude"`
}

// AppConfig holds everything under the "taxiweather" top-level key.
type AppConfig struct {
	System         SystemConfig         `yaml:"system"`
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	Observability  ObservabilityConfig  `yaml:"observability"`
	Dashboard      DashboardConfig      `yaml:"dashboard"`
	Job            JobConfig            `yaml:"job"`
	Pipeline       PipelineConfig       `yaml:"pipeline"`
	// DatabaseConfigs holds named database connections, decoded by the database providers.
	DatabaseConfigs map[string]interface{} `yaml:"database"`
	// StorageConfigs holds named storage connections, decoded by the storage providers.
	StorageConfigs map[string]interface{} `yaml:"storage"`
}

// Config is the root of the application configuration.
type Config struct {
	App AppConfig `yaml:"taxiweather"`
	// EmbeddedConfig keeps the raw YAML the config was loaded from.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// StepProperties returns the properties configured for a job step, or nil.
func (c *Config) StepProperties(stepName string) map[string]interface{} {
	if c == nil || c.App.Job.Steps == nil {
		return nil
	}
	return c.App.Job.Steps[stepName]
}

// NewConfig returns a Config populated with defaults.
// Trip files and weather.csv are read from ./datas by default,
// output goes to ./nyc_taxi_data.db.
func NewConfig() *Config {
	return &Config{
		App: AppConfig{
			System: SystemConfig{
				Logging: LoggingConfig{Level: "INFO", SQLLevel: string(LogLevelSilent)},
			},
			Infrastructure: InfrastructureConfig{
				JobRepositoryDBRef: "output",
				OutputDBRef:        "output",
				InputStorageRef:    "input",
				ExportStorageRef:   "export",
			},
			Observability: ObservabilityConfig{
				Metrics:     MetricsConfig{Enabled: true},
				Tracing:     OTLPConfig{Exporter: "otlphttp", ServiceName: "taxiweather"},
				OTelMetrics: OTLPConfig{Exporter: "otlphttp", ServiceName: "taxiweather"},
			},
			Dashboard: DashboardConfig{Addr: ":8050", ShutdownTimeoutSeconds: 5},
			Job: JobConfig{
				Name:  "taxiWeatherETL",
				Steps: map[string]map[string]interface{}{},
			},
			Pipeline: PipelineConfig{InvalidTimestamps: InvalidTimestampsExclude},
			DatabaseConfigs: map[string]interface{}{
				"output": map[string]interface{}{
					"type":     "sqlite",
					"database": "nyc_taxi_data.db",
				},
			},
			StorageConfigs: map[string]interface{}{
				"input": map[string]interface{}{
					"type":      "local",
					"base_dir":  "datas",
					"read_only": true,
				},
				"export": map[string]interface{}{
					"type":     "local",
					"base_dir": "export",
				},
			},
		},
	}
}
