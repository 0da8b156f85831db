package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig      // EmbeddedConfig contains the raw bytes of the configuration file.
	Expander       EnvironmentExpander `optional:"true"`
	EnvFilePath    string              `name:"envFilePath" optional:"true"` // EnvFilePath is the path to the .env file, if any.
}

// loadConfig loads configuration from the embedded YAML, a .env file and environment variables.
//
// Order of precedence, lowest first:
//  1. defaults from NewConfig()
//  2. the embedded YAML, after ${VAR} expansion
//  3. environment variables named after the yaml path, e.g. TAXIWEATHER_SYSTEM_LOGGING_LEVEL
func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}
	if expander == nil {
		expander = NewOsEnvironmentExpander()
	}

	cfg := NewConfig()

	expanded, err := expander.Expand(embeddedConfig)
	if err != nil {
		return nil, exception.NewConfigError(moduleName, "failed to expand environment variables in config", err)
	}

	// yaml.v3 decodes over the existing values: keys absent from the document keep their defaults,
	// and explicit false/0 values in the document still win.
	if len(expanded) > 0 {
		if err := yaml.Unmarshal(expanded, cfg); err != nil {
			return nil, exception.NewConfigError(moduleName, "failed to unmarshal embedded config", err)
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewConfigError(moduleName, "failed to load config from environment variables", err)
	}
	cfg.EmbeddedConfig = embeddedConfig

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads and provides *Config.
// It also sets the global logger level.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig, params.Expander)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.App.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.App.System.Logging.Level)

	return cfg, nil
}

// LoadConfig loads configuration from the embedded YAML, a .env file and environment variables.
// It is expected to be called once during application startup.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig, nil)
}

// validateConfig runs struct validation and checks the connection references.
func validateConfig(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return exception.NewConfigError(moduleName, "invalid configuration", err)
	}

	refs := map[string]string{
		"infrastructure.job_repository_db_ref": cfg.App.Infrastructure.JobRepositoryDBRef,
		"infrastructure.output_db_ref":         cfg.App.Infrastructure.OutputDBRef,
	}
	for key, ref := range refs {
		if _, ok := cfg.App.DatabaseConfigs[ref]; !ok {
			return exception.NewConfigError(moduleName, fmt.Sprintf("%s references unknown database connection '%s'", key, ref), nil)
		}
	}
	if _, ok := cfg.App.StorageConfigs[cfg.App.Infrastructure.InputStorageRef]; !ok {
		return exception.NewConfigError(moduleName,
			fmt.Sprintf("infrastructure.input_storage_ref references unknown storage connection '%s'", cfg.App.Infrastructure.InputStorageRef), nil)
	}
	return nil
}

// loadStructFromEnv recursively loads configuration values into a struct from environment variables.
// It uses the "yaml" tag to determine the environment variable name.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		switch field.Kind() {
		case reflect.Struct:
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		case reflect.Map:
			if field.Type().Key().Kind() == reflect.String {
				if err := loadMapFromEnv(field, envVarName+"_"); err != nil {
					return err
				}
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadMapFromEnv loads entries of a string-keyed map from environment variables.
// The first segment after the prefix names the map key, the rest names the field inside the entry.
//
// Example: TAXIWEATHER_DATABASE_OUTPUT_DATABASE=/tmp/x.db sets "database" inside the "output" entry.
// Keys are matched case-insensitively against existing entries so camelCase step names resolve.
func loadMapFromEnv(mapField reflect.Value, prefix string) error {
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}
	elemType := mapField.Type().Elem()

	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(env, prefix), "=", 2)
		if len(parts) != 2 {
			continue
		}
		keyAndField, envValue := parts[0], parts[1]

		keyAndFieldParts := strings.Split(keyAndField, "_")
		if len(keyAndFieldParts) < 2 {
			continue
		}
		mapKey := resolveMapKey(mapField, keyAndFieldParts[0])
		fieldName := strings.ToLower(strings.Join(keyAndFieldParts[1:], "_"))

		current := mapField.MapIndex(reflect.ValueOf(mapKey))
		switch elemType.Kind() {
		case reflect.Struct:
			structVal := reflect.New(elemType).Elem()
			if current.IsValid() {
				structVal.Set(current)
			}
			if err := setStructFieldFromEnv(structVal, fieldName, envValue); err != nil {
				return err
			}
			mapField.SetMapIndex(reflect.ValueOf(mapKey), structVal)
		case reflect.Map, reflect.Interface:
			entry := map[string]interface{}{}
			if current.IsValid() {
				if existing, ok := current.Interface().(map[string]interface{}); ok {
					for k, v := range existing {
						entry[k] = v
					}
				}
			}
			entry[fieldName] = envValue
			entryVal := reflect.ValueOf(entry)
			if !entryVal.Type().AssignableTo(elemType) {
				continue
			}
			mapField.SetMapIndex(reflect.ValueOf(mapKey), entryVal)
		}
	}
	return nil
}

// resolveMapKey returns the existing key that matches envKey case-insensitively, or envKey lowercased.
func resolveMapKey(mapField reflect.Value, envKey string) string {
	for _, k := range mapField.MapKeys() {
		if strings.EqualFold(k.String(), envKey) {
			return k.String()
		}
	}
	return strings.ToLower(envKey)
}

// setStructFieldFromEnv sets the struct field whose yaml tag matches fieldName (case-insensitively).
func setStructFieldFromEnv(structVal reflect.Value, fieldName string, value string) error {
	typ := structVal.Type()
	for i := 0; i < typ.NumField(); i++ {
		yamlTag := strings.Split(typ.Field(i).Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		if strings.EqualFold(yamlTag, fieldName) {
			return setField(structVal.Field(i), value)
		}
	}
	return nil
}

// setField sets the value of a reflect.Value field based on its kind.
// It handles string, int, float, and bool types.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
