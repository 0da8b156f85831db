package generic

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/taxiweather/pkg/batch/adapter/storage"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/storage/local"
	coreConfig "github.com/tigerroll/taxiweather/pkg/batch/core/config"
	"github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
)

type exportRow struct {
	ID int64 `parquet:"name=id,type=INT64"`
}

func newResolver(t *testing.T, baseDir string) storage.StorageConnectionResolver {
	t.Helper()
	cfg := coreConfig.NewConfig()
	cfg.App.StorageConfigs = map[string]interface{}{
		"export": map[string]interface{}{"type": "local", "base_dir": baseDir},
	}
	resolver := storage.NewConnectionResolver(storage.ConnectionResolverParams{
		Providers: []storage.StorageProvider{local.NewLocalProvider(cfg)},
		Cfg:       cfg,
	})
	t.Cleanup(func() { resolver.CloseAll() })
	return resolver
}

func newStepExecution() *model.StepExecution {
	je := model.NewJobExecution("etl", nil)
	return model.NewStepExecution(model.NewID(), je, "export")
}

func TestParquetExportTasklet_Disabled(t *testing.T) {
	called := false
	source := func(ctx context.Context) ([]exportRow, error) {
		called = true
		return nil, nil
	}
	tasklet := NewParquetExportTasklet(ParquetExportTaskletConfig{StorageRef: "export", ObjectName: "x.parquet"}, newResolver(t, t.TempDir()), source, new(exportRow))

	status, err := tasklet.Execute(context.Background(), newStepExecution())
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusNoOp, status)
	assert.False(t, called)
}

func TestParquetExportTasklet_ExportsAllRows(t *testing.T) {
	base := t.TempDir()
	rows := make([]exportRow, 25)
	for i := range rows {
		rows[i].ID = int64(i)
	}
	source := func(ctx context.Context) ([]exportRow, error) { return rows, nil }
	tasklet := NewParquetExportTasklet(ParquetExportTaskletConfig{
		Enabled:        true,
		StorageRef:     "export",
		ObjectName:     "out/rows.parquet",
		WriteBatchSize: 10,
	}, newResolver(t, base), source, new(exportRow))

	se := newStepExecution()
	status, err := tasklet.Execute(context.Background(), se)
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)
	assert.Equal(t, 25, se.ReadCount)
	assert.Equal(t, 25, se.WriteCount)
	assert.FileExists(t, filepath.Join(base, "out", "rows.parquet"))
}

func TestParquetExportTasklet_Failures(t *testing.T) {
	boom := errors.New("boom")
	failing := func(ctx context.Context) ([]exportRow, error) { return nil, boom }
	tasklet := NewParquetExportTasklet(ParquetExportTaskletConfig{Enabled: true, StorageRef: "export", ObjectName: "x.parquet"}, newResolver(t, t.TempDir()), failing, new(exportRow))
	status, err := tasklet.Execute(context.Background(), newStepExecution())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, model.ExitStatusFailed, status)

	empty := func(ctx context.Context) ([]exportRow, error) { return nil, nil }
	tasklet = NewParquetExportTasklet(ParquetExportTaskletConfig{Enabled: true, StorageRef: "missing", ObjectName: "x.parquet"}, newResolver(t, t.TempDir()), empty, new(exportRow))
	status, err = tasklet.Execute(context.Background(), newStepExecution())
	assert.Error(t, err)
	assert.Equal(t, model.ExitStatusFailed, status)
}
