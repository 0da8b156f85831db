package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/taxiweather/internal/domain/entity"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/storage"
	storageLocal "github.com/tigerroll/taxiweather/pkg/batch/adapter/storage/local"
	coreConfig "github.com/tigerroll/taxiweather/pkg/batch/core/config"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
)

type tripFixture struct {
	Pickup         *int64   `parquet:"name=tpep_pickup_datetime,type=INT64,convertedtype=TIMESTAMP_MICROS,repetitiontype=OPTIONAL"`
	PULocationID   *int64   `parquet:"name=PULocationID,type=INT64,repetitiontype=OPTIONAL"`
	TripDistance   *float64 `parquet:"name=trip_distance,type=DOUBLE,repetitiontype=OPTIONAL"`
	PassengerCount *float64 `parquet:"name=passenger_count,type=DOUBLE,repetitiontype=OPTIONAL"`
	TipAmount      *float64 `parquet:"name=tip_amount,type=DOUBLE,repetitiontype=OPTIONAL"`
	TotalAmount    *float64 `parquet:"name=total_amount,type=DOUBLE,repetitiontype=OPTIONAL"`
	PaymentType    *int64   `parquet:"name=payment_type,type=INT64,repetitiontype=OPTIONAL"`
}

type millisFixture struct {
	Pickup         int64   `parquet:"name=tpep_pickup_datetime,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
	PULocationID   int32   `parquet:"name=PULocationID,type=INT32"`
	TripDistance   float64 `parquet:"name=trip_distance,type=DOUBLE"`
	PassengerCount float32 `parquet:"name=passenger_count,type=FLOAT"`
	TipAmount      float64 `parquet:"name=tip_amount,type=DOUBLE"`
	TotalAmount    float64 `parquet:"name=total_amount,type=DOUBLE"`
	PaymentType    int32   `parquet:"name=payment_type,type=INT32"`
}

type missingPaymentFixture struct {
	Pickup         int64   `parquet:"name=tpep_pickup_datetime,type=INT64,convertedtype=TIMESTAMP_MICROS"`
	PULocationID   int64   `parquet:"name=PULocationID,type=INT64"`
	TripDistance   float64 `parquet:"name=trip_distance,type=DOUBLE"`
	PassengerCount float64 `parquet:"name=passenger_count,type=DOUBLE"`
	TipAmount      float64 `parquet:"name=tip_amount,type=DOUBLE"`
	TotalAmount    float64 `parquet:"name=total_amount,type=DOUBLE"`
}

type stringPaymentFixture struct {
	Pickup         int64   `parquet:"name=tpep_pickup_datetime,type=INT64"`
	PULocationID   int64   `parquet:"name=PULocationID,type=INT64"`
	TripDistance   float64 `parquet:"name=trip_distance,type=DOUBLE"`
	PassengerCount float64 `parquet:"name=passenger_count,type=DOUBLE"`
	TipAmount      float64 `parquet:"name=tip_amount,type=DOUBLE"`
	TotalAmount    float64 `parquet:"name=total_amount,type=DOUBLE"`
	PaymentType    string  `parquet:"name=payment_type,type=BYTE_ARRAY,convertedtype=UTF8"`
}

func writeParquet(t *testing.T, path string, schema interface{}, rows ...interface{}) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	fw, err := local.NewLocalFileWriter(path)
	require.NoError(t, err)
	pw, err := writer.NewParquetWriter(fw, schema, 1)
	require.NoError(t, err)
	for _, row := range rows {
		require.NoError(t, pw.Write(row))
	}
	require.NoError(t, pw.WriteStop())
	require.NoError(t, fw.Close())
}

func newTestLoader(t *testing.T, baseDir string, glob string) *Loader {
	t.Helper()
	cfg := coreConfig.NewConfig()
	cfg.App.StorageConfigs = map[string]interface{}{
		"input": map[string]interface{}{"type": "local", "base_dir": baseDir, "read_only": true},
	}
	resolver := storage.NewConnectionResolver(storage.ConnectionResolverParams{
		Providers: []storage.StorageProvider{storageLocal.NewLocalProvider(cfg)},
		Cfg:       cfg,
	})
	t.Cleanup(func() { resolver.CloseAll() })
	return NewLoader(resolver, "input", glob)
}

func TestLoadTrips_ConcatenatesMatchingFilesInNameOrder(t *testing.T) {
	base := t.TempDir()
	// 2024-01-01T10:30:00Z in microseconds.
	micros := int64(1704105000000000)
	writeParquet(t, filepath.Join(base, "trips", "b.parquet"), new(tripFixture),
		tripFixture{
			Pickup:       entity.Int64(micros),
			PULocationID: entity.Int64(161),
			TripDistance: entity.Float64(2.0),
			TipAmount:    entity.Float64(1.0),
			TotalAmount:  entity.Float64(10.0),
			PaymentType:  entity.Int64(1),
		},
		tripFixture{Pickup: nil, PaymentType: nil},
	)
	writeParquet(t, filepath.Join(base, "trips", "a.parquet"), new(millisFixture),
		millisFixture{Pickup: 1704105000000, PULocationID: 7, TripDistance: 3.5, PassengerCount: 2, TotalAmount: 12, PaymentType: 2},
	)
	require.NoError(t, os.WriteFile(filepath.Join(base, "trips", "notes.txt"), []byte("skip"), 0o644))
	writeParquet(t, filepath.Join(base, "trips", "nested", "c.parquet"), new(millisFixture), millisFixture{})

	records, err := newTestLoader(t, base, "").LoadTrips(context.Background(), "trips")
	require.NoError(t, err)
	require.Len(t, records, 3)

	first := records[0]
	require.NotNil(t, first.PickupRaw)
	assert.Equal(t, int64(1704105000000), *first.PickupRaw)
	assert.Equal(t, entity.UnitMillis, first.PickupUnit)
	assert.Equal(t, int64(7), *first.PULocationID)
	assert.Equal(t, 2.0, *first.PassengerCount)
	assert.Equal(t, int64(2), *first.PaymentType)

	second := records[1]
	assert.Equal(t, micros, *second.PickupRaw)
	assert.Equal(t, entity.UnitMicros, second.PickupUnit)
	assert.Equal(t, 2.0, *second.TripDistance)
	assert.Nil(t, second.PassengerCount)
	assert.Equal(t, int64(1), *second.PaymentType)

	third := records[2]
	assert.Nil(t, third.PickupRaw)
	assert.Nil(t, third.PaymentType)
}

func TestLoadTrips_UnannotatedTimestampIsNanos(t *testing.T) {
	base := t.TempDir()
	type nanosFixture struct {
		Pickup         int64   `parquet:"name=tpep_pickup_datetime,type=INT64"`
		PULocationID   int64   `parquet:"name=PULocationID,type=INT64"`
		TripDistance   float64 `parquet:"name=trip_distance,type=DOUBLE"`
		PassengerCount float64 `parquet:"name=passenger_count,type=DOUBLE"`
		TipAmount      float64 `parquet:"name=tip_amount,type=DOUBLE"`
		TotalAmount    float64 `parquet:"name=total_amount,type=DOUBLE"`
		PaymentType    int64   `parquet:"name=payment_type,type=INT64"`
	}
	writeParquet(t, filepath.Join(base, "yellow.parquet"), new(nanosFixture), nanosFixture{Pickup: 42, PaymentType: 1})

	records, err := newTestLoader(t, base, "yellow*.parquet").LoadTrips(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, entity.UnitNanos, records[0].PickupUnit)
	assert.Equal(t, int64(42), *records[0].PickupRaw)
}

func TestLoadTrips_MissingDirectoryIsIOError(t *testing.T) {
	base := filepath.Join(t.TempDir(), "absent")

	_, err := newTestLoader(t, base, "").LoadTrips(context.Background(), "")
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindIO))
}

func TestLoadTrips_NoMatchingFilesIsIOError(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "readme.md"), []byte("x"), 0o644))

	_, err := newTestLoader(t, base, "").LoadTrips(context.Background(), "")
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindIO))
	assert.Contains(t, err.Error(), "no files matching")
}

func TestLoadTrips_SchemaProblemsAreAggregatedFormatError(t *testing.T) {
	base := t.TempDir()
	writeParquet(t, filepath.Join(base, "1.parquet"), new(missingPaymentFixture), missingPaymentFixture{})
	writeParquet(t, filepath.Join(base, "2.parquet"), new(stringPaymentFixture), stringPaymentFixture{PaymentType: "cash"})
	require.NoError(t, os.WriteFile(filepath.Join(base, "3.parquet"), []byte("not parquet"), 0o644))

	_, err := newTestLoader(t, base, "").LoadTrips(context.Background(), "")
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindFormat))
	msg := err.Error()
	assert.Contains(t, msg, "3 of 3 trip files")
	assert.Contains(t, msg, "missing required column 'payment_type'")
	assert.Contains(t, msg, "column 'payment_type' has unexpected physical type")
	assert.Contains(t, msg, "3.parquet")
}

func TestLoadWeather(t *testing.T) {
	base := t.TempDir()
	csv := "name,datetime,tempmax,tempmin,temp,feelslikemax,feelslikemin,feelslike,humidity,snow\n" +
		"New York,2024-01-01,8.1,1.2,5.0,6.0,-1.0,2.5,70.4,\n" +
		"New York,2024-01-02, 9.0 ,2,5.5,7,0,3,65,0.3\n"
	require.NoError(t, os.WriteFile(filepath.Join(base, "weather.csv"), []byte(csv), 0o644))

	records, err := newTestLoader(t, base, "").LoadWeather(context.Background(), "weather.csv")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2024-01-01", records[0].Datetime)
	assert.Equal(t, 5.0, *records[0].Temp)
	assert.Nil(t, records[0].Snow)
	assert.Equal(t, 9.0, *records[1].TempMax)
	assert.Equal(t, 0.3, *records[1].Snow)
}

func TestLoadWeather_Errors(t *testing.T) {
	base := t.TempDir()
	loader := newTestLoader(t, base, "")

	_, err := loader.LoadWeather(context.Background(), "weather.csv")
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindIO))

	require.NoError(t, os.WriteFile(filepath.Join(base, "short.csv"), []byte("datetime,temp\n2024-01-01,1\n"), 0o644))
	_, err = loader.LoadWeather(context.Background(), "short.csv")
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindFormat))
	assert.Contains(t, err.Error(), "tempmax")

	bad := "datetime,tempmax,tempmin,temp,feelslikemax,feelslikemin,feelslike,humidity,snow\n" +
		"2024-01-01,hot,1,1,1,1,1,1,0\n"
	require.NoError(t, os.WriteFile(filepath.Join(base, "bad.csv"), []byte(bad), 0o644))
	_, err = loader.LoadWeather(context.Background(), "bad.csv")
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindFormat))
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoadWeather_HeaderOnlyAndRaggedRows(t *testing.T) {
	base := t.TempDir()
	loader := newTestLoader(t, base, "")
	header := "\xef\xbb\xbfdatetime,tempmax,tempmin,temp,feelslikemax,feelslikemin,feelslike,humidity,snow\n"

	require.NoError(t, os.WriteFile(filepath.Join(base, "header.csv"), []byte(header), 0o644))
	records, err := loader.LoadWeather(context.Background(), "header.csv")
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, os.WriteFile(filepath.Join(base, "empty.csv"), nil, 0o644))
	_, err = loader.LoadWeather(context.Background(), "empty.csv")
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindFormat))
	assert.Contains(t, err.Error(), "empty")

	ragged := header + "2024-01-01,1,1,1\n"
	require.NoError(t, os.WriteFile(filepath.Join(base, "ragged.csv"), []byte(ragged), 0o644))
	_, err = loader.LoadWeather(context.Background(), "ragged.csv")
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindFormat))
}
