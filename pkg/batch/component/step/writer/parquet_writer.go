// Package writer encodes rows into parquet objects on a storage connection.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/taxiweather/pkg/batch/adapter/storage"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

const moduleName = "writer"

// ParquetWriterConfig holds the configuration for ParquetWriter.
type ParquetWriterConfig struct {
	// Bucket is passed through to the storage connection.
	Bucket string
	// ObjectName is the object the rows are written to. An existing object is replaced.
	ObjectName string
	// CompressionType is the compression codec name (e.g., "SNAPPY", "GZIP", "NONE").
	CompressionType string
}

// ParquetWriter buffers rows of type T and writes them as one parquet object on Close.
// The parquet schema is reflected from the struct tags of T.
type ParquetWriter[T any] struct {
	name   string
	config ParquetWriterConfig
	conn   storage.StorageConnection
	// itemPrototype is a pointer to a zero-value instance of the item type, used for schema reflection.
	itemPrototype *T

	bufferedItems []T
}

// NewParquetWriter creates a ParquetWriter that uploads through conn.
// An empty CompressionType defaults to SNAPPY.
func NewParquetWriter[T any](name string, conn storage.StorageConnection, config ParquetWriterConfig, itemPrototype *T) (*ParquetWriter[T], error) {
	if config.ObjectName == "" {
		return nil, exception.NewConfigError(moduleName, fmt.Sprintf("ParquetWriter '%s' requires an object name", name), nil)
	}
	if config.CompressionType == "" {
		config.CompressionType = "SNAPPY"
	}
	if _, err := ParseCompressionCodec(config.CompressionType); err != nil {
		return nil, exception.NewConfigError(moduleName, fmt.Sprintf("invalid compression type for ParquetWriter '%s'", name), err)
	}
	return &ParquetWriter[T]{
		name:          name,
		config:        config,
		conn:          conn,
		itemPrototype: itemPrototype,
	}, nil
}

// Write buffers items until Close.
func (w *ParquetWriter[T]) Write(ctx context.Context, items []T) error {
	w.bufferedItems = append(w.bufferedItems, items...)
	logger.Debugf("ParquetWriter '%s': buffered %d items (total %d).", w.name, len(items), len(w.bufferedItems))
	return nil
}

// Close encodes the buffered items and uploads the object.
// The buffer is cleared whether or not the upload succeeds.
func (w *ParquetWriter[T]) Close(ctx context.Context) error {
	items := w.bufferedItems
	w.bufferedItems = nil

	data, err := w.encode(items)
	if err != nil {
		return err
	}

	logger.Debugf("ParquetWriter '%s': uploading %d bytes to '%s'.", w.name, len(data), w.config.ObjectName)
	if err := w.conn.Upload(ctx, w.config.Bucket, w.config.ObjectName, bytes.NewReader(data), "application/octet-stream"); err != nil {
		return exception.NewIOError(moduleName, fmt.Sprintf("failed to upload '%s'", w.config.ObjectName), err)
	}
	logger.Infof("ParquetWriter '%s': wrote %d rows to '%s'.", w.name, len(items), w.config.ObjectName)
	return nil
}

func (w *ParquetWriter[T]) encode(items []T) (data []byte, err error) {
	codec, err := ParseCompressionCodec(w.config.CompressionType)
	if err != nil {
		return nil, exception.NewConfigError(moduleName, fmt.Sprintf("invalid compression type for ParquetWriter '%s'", w.name), err)
	}

	// The library panics on schema problems instead of returning errors.
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = exception.NewFormatError(moduleName, fmt.Sprintf("parquet encoder panicked in ParquetWriter '%s'", w.name), fmt.Errorf("%v", r))
		}
	}()

	buf := new(bytes.Buffer)
	np := int64(1)
	pw, err := writer.NewParquetWriterFromWriter(buf, w.itemPrototype, np)
	if err != nil {
		return nil, exception.NewFormatError(moduleName, fmt.Sprintf("failed to create parquet writer for '%s'", w.name), err)
	}
	pw.CompressionType = codec

	for i := range items {
		if err := pw.Write(items[i]); err != nil {
			return nil, exception.NewFormatError(moduleName, fmt.Sprintf("failed to encode row %d in ParquetWriter '%s'", i, w.name), err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, exception.NewFormatError(moduleName, fmt.Sprintf("failed to finish parquet file in ParquetWriter '%s'", w.name), err)
	}
	return buf.Bytes(), nil
}

// ParseCompressionCodec returns the parquet compression codec named by compressionType.
func ParseCompressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "UNCOMPRESSED", "": // empty means uncompressed
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}
