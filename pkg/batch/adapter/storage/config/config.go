// Package config holds the connection settings decoded from the "storage" section of the configuration.
package config

import (
	"fmt"

	"github.com/tigerroll/taxiweather/pkg/batch/support/util/configbinder"
)

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type"`             // Type of storage ("local", "gcs").
	BucketName      string `yaml:"bucket_name"`      // Default bucket name for operations.
	CredentialsFile string `yaml:"credentials_file"` // Path to a service account key for GCS.
	Endpoint        string `yaml:"endpoint"`         // Overrides the GCS endpoint (e.g. an emulator). Disables authentication.
	BaseDir         string `yaml:"base_dir"`         // Base directory for local file system operations.
	// ReadOnly marks an input location: the local base directory is never created and writes are refused.
	ReadOnly bool `yaml:"read_only"`
}

// Decode reads the named entry out of the raw "storage" section.
func Decode(rawConfigs map[string]interface{}, name string) (StorageConfig, error) {
	var storageCfg StorageConfig
	rawConfig, ok := rawConfigs[name]
	if !ok {
		return storageCfg, fmt.Errorf("storage configuration for name '%s' not found", name)
	}
	props, ok := rawConfig.(map[string]interface{})
	if !ok {
		return storageCfg, fmt.Errorf("storage configuration '%s' has unexpected format %T", name, rawConfig)
	}
	if err := configbinder.BindProperties(props, &storageCfg); err != nil {
		return storageCfg, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}
	if storageCfg.Type == "" {
		return storageCfg, fmt.Errorf("storage configuration '%s' has no type", name)
	}
	return storageCfg, nil
}
