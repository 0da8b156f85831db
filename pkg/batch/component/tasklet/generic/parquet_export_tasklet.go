// Package generic provides tasklets that are parameterised by the row type they move.
package generic

import (
	"context"
	"fmt"

	"github.com/tigerroll/taxiweather/pkg/batch/adapter/storage"
	writer "github.com/tigerroll/taxiweather/pkg/batch/component/step/writer"
	"github.com/tigerroll/taxiweather/pkg/batch/core/application/port"
	"github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

// DefaultWriteBatchSize is the number of rows handed to the writer at a time.
const DefaultWriteBatchSize = 1000

// ParquetExportTaskletConfig holds the configuration for ParquetExportTasklet.
type ParquetExportTaskletConfig struct {
	// Enabled turns the export on. A disabled export finishes with ExitStatusNoOp.
	Enabled    bool
	StorageRef string
	Bucket     string
	ObjectName string
	// CompressionType is a parquet codec name. Empty means SNAPPY.
	CompressionType string
	WriteBatchSize  int
}

// RowSource returns the rows to export.
type RowSource[T any] func(ctx context.Context) ([]T, error)

// ParquetExportTasklet reads every row from a source and writes them as one parquet object.
type ParquetExportTasklet[T any] struct {
	config          ParquetExportTaskletConfig
	storageResolver storage.StorageConnectionResolver
	source          RowSource[T]
	// itemPrototype is a prototype instance of the row type for parquet schema reflection.
	itemPrototype *T
}

// NewParquetExportTasklet creates a new instance of ParquetExportTasklet.
func NewParquetExportTasklet[T any](
	config ParquetExportTaskletConfig,
	storageResolver storage.StorageConnectionResolver,
	source RowSource[T],
	itemPrototype *T,
) *ParquetExportTasklet[T] {
	if config.WriteBatchSize <= 0 {
		config.WriteBatchSize = DefaultWriteBatchSize
	}
	return &ParquetExportTasklet[T]{
		config:          config,
		storageResolver: storageResolver,
		source:          source,
		itemPrototype:   itemPrototype,
	}
}

// Execute exports the rows. Read and write counts are set on stepExecution.
func (t *ParquetExportTasklet[T]) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	if !t.config.Enabled {
		logger.Infof("Parquet export is disabled, skipping step '%s'.", stepExecution.StepName)
		return model.ExitStatusNoOp, nil
	}

	rows, err := t.source(ctx)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	stepExecution.ReadCount = len(rows)

	conn, err := t.storageResolver.ResolveStorageConnection(ctx, t.config.StorageRef)
	if err != nil {
		return model.ExitStatusFailed, exception.NewIOError("tasklet", fmt.Sprintf("failed to resolve storage connection '%s'", t.config.StorageRef), err)
	}

	pw, err := writer.NewParquetWriter(stepExecution.StepName, conn, writer.ParquetWriterConfig{
		Bucket:          t.config.Bucket,
		ObjectName:      t.config.ObjectName,
		CompressionType: t.config.CompressionType,
	}, t.itemPrototype)
	if err != nil {
		return model.ExitStatusFailed, err
	}

	for start := 0; start < len(rows); start += t.config.WriteBatchSize {
		if err := ctx.Err(); err != nil {
			return model.ExitStatusFailed, err
		}
		end := min(start+t.config.WriteBatchSize, len(rows))
		if err := pw.Write(ctx, rows[start:end]); err != nil {
			return model.ExitStatusFailed, err
		}
	}
	if err := pw.Close(ctx); err != nil {
		return model.ExitStatusFailed, err
	}

	stepExecution.WriteCount = len(rows)
	logger.Infof("Exported %d rows to '%s' on storage '%s'.", len(rows), t.config.ObjectName, t.config.StorageRef)
	return model.ExitStatusCompleted, nil
}

var _ port.Tasklet = (*ParquetExportTasklet[struct{}])(nil)
