package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/taxiweather/pkg/batch/adapter/storage"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/storage/local"
	coreConfig "github.com/tigerroll/taxiweather/pkg/batch/core/config"
)

func TestConnectionResolver(t *testing.T) {
	cfg := coreConfig.NewConfig()
	cfg.App.StorageConfigs = map[string]interface{}{
		"input":  map[string]interface{}{"type": "local", "base_dir": t.TempDir()},
		"remote": map[string]interface{}{"type": "gcs", "bucket_name": "b"},
	}
	resolver := storage.NewConnectionResolver(storage.ConnectionResolverParams{
		Providers: []storage.StorageProvider{local.NewLocalProvider(cfg)},
		Cfg:       cfg,
	})
	defer resolver.CloseAll()

	conn, err := resolver.ResolveStorageConnection(context.Background(), "input")
	require.NoError(t, err)
	assert.Equal(t, "input", conn.Name())

	_, err = resolver.ResolveConnection(context.Background(), "remote")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no storage provider found for type 'gcs'")

	_, err = resolver.ResolveStorageConnection(context.Background(), "nope")
	require.Error(t, err)
}
