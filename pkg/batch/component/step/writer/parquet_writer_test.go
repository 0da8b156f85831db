package writer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	parquetLocal "github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"

	storageConfig "github.com/tigerroll/taxiweather/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/taxiweather/pkg/batch/component/step/writer"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
)

type sampleRow struct {
	Name  string   `parquet:"name=name,type=BYTE_ARRAY,convertedtype=UTF8"`
	Count int64    `parquet:"name=count,type=INT64"`
	Score *float64 `parquet:"name=score,type=DOUBLE,repetitiontype=OPTIONAL"`
}

func TestParquetWriter_WritesOneObject(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: base}, "export")
	require.NoError(t, err)

	w, err := writer.NewParquetWriter("sample", conn, writer.ParquetWriterConfig{ObjectName: "out/sample.parquet"}, new(sampleRow))
	require.NoError(t, err)

	score := 1.5
	require.NoError(t, w.Write(ctx, []sampleRow{{Name: "a", Count: 1, Score: &score}}))
	require.NoError(t, w.Write(ctx, []sampleRow{{Name: "b", Count: 2}}))
	require.NoError(t, w.Close(ctx))

	path := filepath.Join(base, "out", "sample.parquet")
	fr, err := parquetLocal.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(sampleRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()
	require.EqualValues(t, 2, pr.GetNumRows())

	rows := make([]sampleRow, 2)
	require.NoError(t, pr.Read(&rows))
	assert.Equal(t, "a", rows[0].Name)
	require.NotNil(t, rows[0].Score)
	assert.Equal(t, 1.5, *rows[0].Score)
	assert.Equal(t, int64(2), rows[1].Count)
	assert.Nil(t, rows[1].Score)
	assert.Equal(t, parquet.CompressionCodec_SNAPPY, pr.Footer.RowGroups[0].Columns[0].MetaData.Codec)
}

func TestParquetWriter_EmptyWriteStillProducesFile(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: base}, "export")
	require.NoError(t, err)

	w, err := writer.NewParquetWriter("empty", conn, writer.ParquetWriterConfig{ObjectName: "empty.parquet", CompressionType: "gzip"}, new(sampleRow))
	require.NoError(t, err)
	require.NoError(t, w.Close(ctx))

	info, err := os.Stat(filepath.Join(base, "empty.parquet"))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestParquetWriter_ConfigErrors(t *testing.T) {
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: t.TempDir()}, "export")
	require.NoError(t, err)

	_, err = writer.NewParquetWriter("x", conn, writer.ParquetWriterConfig{}, new(sampleRow))
	assert.True(t, exception.IsKind(err, exception.KindConfig))

	_, err = writer.NewParquetWriter("x", conn, writer.ParquetWriterConfig{ObjectName: "x.parquet", CompressionType: "BROTLI2"}, new(sampleRow))
	assert.True(t, exception.IsKind(err, exception.KindConfig))
}

func TestParquetWriter_UploadFailureIsIOError(t *testing.T) {
	ctx := context.Background()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: t.TempDir(), ReadOnly: true}, "input")
	require.NoError(t, err)

	w, err := writer.NewParquetWriter("ro", conn, writer.ParquetWriterConfig{ObjectName: "x.parquet"}, new(sampleRow))
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, []sampleRow{{Name: "a"}}))
	err = w.Close(ctx)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindIO))
}

func TestParseCompressionCodec(t *testing.T) {
	for name, want := range map[string]parquet.CompressionCodec{
		"snappy":       parquet.CompressionCodec_SNAPPY,
		"GZIP":         parquet.CompressionCodec_GZIP,
		"NONE":         parquet.CompressionCodec_UNCOMPRESSED,
		"uncompressed": parquet.CompressionCodec_UNCOMPRESSED,
		"":             parquet.CompressionCodec_UNCOMPRESSED,
	} {
		got, err := writer.ParseCompressionCodec(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := writer.ParseCompressionCodec("zstd9")
	assert.Error(t, err)
}
