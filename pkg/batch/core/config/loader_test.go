package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/taxiweather/pkg/batch/core/config"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
)

const testYAML = `
taxiweather:
  system:
    logging:
      level: DEBUG
  database:
    output:
      type: sqlite
      database: ${TW_TEST_DB_PATH}
  observability:
    metrics:
      enabled: false
  job:
    name: nightly
    steps:
      loadTrips:
        glob: "yellow_*.parquet"
      persist:
        batch_size: 200
  pipeline:
    invalid_timestamps: exclude
`

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig("testdata-missing.env", nil)
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.App.System.Logging.Level)
	assert.Equal(t, ":8050", cfg.App.Dashboard.Addr)
	assert.Equal(t, "taxiWeatherETL", cfg.App.Job.Name)
	assert.Equal(t, config.InvalidTimestampsExclude, cfg.App.Pipeline.InvalidTimestamps)
	assert.True(t, cfg.App.Observability.Metrics.Enabled)

	output, ok := cfg.App.DatabaseConfigs["output"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "nyc_taxi_data.db", output["database"])
}

func TestLoadConfig_YAMLOverridesDefaults(t *testing.T) {
	t.Setenv("TW_TEST_DB_PATH", "/tmp/trips.db")

	cfg, err := config.LoadConfig("testdata-missing.env", config.EmbeddedConfig(testYAML))
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.App.System.Logging.Level)
	assert.Equal(t, "nightly", cfg.App.Job.Name)
	assert.False(t, cfg.App.Observability.Metrics.Enabled, "explicit false in YAML must win over the default")
	assert.Equal(t, ":8050", cfg.App.Dashboard.Addr, "absent keys keep their defaults")

	output := cfg.App.DatabaseConfigs["output"].(map[string]interface{})
	assert.Equal(t, "/tmp/trips.db", output["database"])

	assert.Equal(t, "yellow_*.parquet", cfg.StepProperties("loadTrips")["glob"])
	assert.Equal(t, 200, cfg.StepProperties("persist")["batch_size"])
	assert.Nil(t, cfg.StepProperties("unknown"))
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("TW_TEST_DB_PATH", "/tmp/trips.db")
	t.Setenv("TAXIWEATHER_SYSTEM_LOGGING_LEVEL", "WARN")
	t.Setenv("TAXIWEATHER_DASHBOARD_ADDR", "127.0.0.1:9000")
	t.Setenv("TAXIWEATHER_DATABASE_OUTPUT_DATABASE", "/data/out.db")
	t.Setenv("TAXIWEATHER_STORAGE_INPUT_BASE_DIR", "/data/raw")
	t.Setenv("TAXIWEATHER_JOB_STEPS_PERSIST_BATCH_SIZE", "50")

	cfg, err := config.LoadConfig("testdata-missing.env", config.EmbeddedConfig(testYAML))
	require.NoError(t, err)

	assert.Equal(t, "WARN", cfg.App.System.Logging.Level)
	assert.Equal(t, "127.0.0.1:9000", cfg.App.Dashboard.Addr)

	output := cfg.App.DatabaseConfigs["output"].(map[string]interface{})
	assert.Equal(t, "/data/out.db", output["database"])
	assert.Equal(t, "sqlite", output["type"], "other entry fields are preserved")

	input := cfg.App.StorageConfigs["input"].(map[string]interface{})
	assert.Equal(t, "/data/raw", input["base_dir"])

	assert.Equal(t, "50", cfg.StepProperties("persist")["batch_size"])
}

func TestLoadConfig_RejectsUnknownTimestampPolicy(t *testing.T) {
	yml := `
taxiweather:
  pipeline:
    invalid_timestamps: keep
`
	_, err := config.LoadConfig("testdata-missing.env", config.EmbeddedConfig(yml))
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindConfig))
}

func TestLoadConfig_RejectsUnknownDatabaseRef(t *testing.T) {
	yml := `
taxiweather:
  infrastructure:
    output_db_ref: warehouse
`
	_, err := config.LoadConfig("testdata-missing.env", config.EmbeddedConfig(yml))
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindConfig))
	assert.Contains(t, err.Error(), "warehouse")
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	_, err := config.LoadConfig("testdata-missing.env", config.EmbeddedConfig("taxiweather: ["))
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindConfig))
}
