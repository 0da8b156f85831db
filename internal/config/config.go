// Package config holds the typed properties of the ETL job steps.
// Each struct is bound from taxiweather.job.steps.<step> in application.yaml.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/tigerroll/taxiweather/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
)

// Step names as they appear under taxiweather.job.steps.
const (
	StepLoadTrips   = "loadTrips"
	StepLoadWeather = "loadWeather"
	StepAggregate   = "aggregateTrips"
	StepNormalize   = "normalizeWeather"
	StepPersist     = "persist"
	StepExport      = "export"
)

// LoadTripsConfig configures the trip-record loader.
type LoadTripsConfig struct {
	// Dir is the directory, relative to the input storage root, holding the trip files.
	Dir string `yaml:"dir"`
	// Glob selects the trip files by base name.
	Glob string `yaml:"glob" validate:"required"`
}

// LoadWeatherConfig configures the weather loader.
type LoadWeatherConfig struct {
	// Path is the weather CSV, relative to the input storage root.
	Path string `yaml:"path" validate:"required"`
}

// PersistConfig configures the taxi_trips writer.
type PersistConfig struct {
	BatchSize int `yaml:"batch_size" validate:"gte=1"`
}

// ExportConfig configures the optional parquet export of taxi_trips.
type ExportConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ObjectName string `yaml:"object_name" validate:"required"`
	// Compression is a parquet codec name (SNAPPY, GZIP, UNCOMPRESSED, ...).
	Compression string `yaml:"compression" validate:"required"`
	// Bucket is passed to the export storage connection. Local storage ignores it.
	Bucket string `yaml:"bucket"`
}

// NewLoadTripsConfig returns the defaults for the loadTrips step.
func NewLoadTripsConfig() *LoadTripsConfig {
	return &LoadTripsConfig{Dir: "", Glob: "*.parquet"}
}

// NewLoadWeatherConfig returns the defaults for the loadWeather step.
func NewLoadWeatherConfig() *LoadWeatherConfig {
	return &LoadWeatherConfig{Path: "weather.csv"}
}

// NewPersistConfig returns the defaults for the persist step.
func NewPersistConfig() *PersistConfig {
	return &PersistConfig{BatchSize: 500}
}

// NewExportConfig returns the defaults for the export step. Export is off unless enabled.
func NewExportConfig() *ExportConfig {
	return &ExportConfig{ObjectName: "taxi_trips.parquet", Compression: "SNAPPY"}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Bind decodes the properties of step over target's defaults and validates the result.
func Bind(step string, properties map[string]interface{}, target interface{}) error {
	if err := configbinder.BindProperties(properties, target); err != nil {
		return exception.NewConfigError("config", fmt.Sprintf("invalid properties for step '%s'", step), err)
	}
	if err := validate.Struct(target); err != nil {
		return exception.NewConfigError("config", fmt.Sprintf("invalid properties for step '%s'", step), err)
	}
	return nil
}
