package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"
	"go.uber.org/fx"

	config "github.com/tigerroll/taxiweather/pkg/batch/core/config"
	model "github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
)

type tripRow struct {
	Pickup         int64   `parquet:"name=tpep_pickup_datetime,type=INT64,convertedtype=TIMESTAMP_MICROS"`
	PULocationID   int64   `parquet:"name=PULocationID,type=INT64"`
	TripDistance   float64 `parquet:"name=trip_distance,type=DOUBLE"`
	PassengerCount float64 `parquet:"name=passenger_count,type=DOUBLE"`
	TipAmount      float64 `parquet:"name=tip_amount,type=DOUBLE"`
	TotalAmount    float64 `parquet:"name=total_amount,type=DOUBLE"`
	PaymentType    int64   `parquet:"name=payment_type,type=INT64"`
}

const testConfig = `
taxiweather:
  system:
    logging:
      level: WARN
  database:
    output:
      type: sqlite
      database: %[1]s/nyc_taxi_data.db
  storage:
    input:
      type: local
      base_dir: %[1]s/datas
      read_only: true
    export:
      type: local
      base_dir: %[1]s/export
  observability:
    metrics:
      enabled: true
      textfile: %[1]s/taxiweather.prom
  dashboard:
    addr: "127.0.0.1:0"
  job:
    steps:
      loadTrips:
        dir: trips
`

func newOptions(t *testing.T, withTrips bool) (Options, string) {
	t.Helper()
	root := t.TempDir()
	input := filepath.Join(root, "datas")
	require.NoError(t, os.MkdirAll(filepath.Join(input, "trips"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(input, "weather.csv"),
		[]byte("datetime,tempmax,tempmin,temp,feelslikemax,feelslikemin,feelslike,humidity,snow\n2024-01-01,8,2,5,6,0,3,70,0\n"), 0o644))

	if withTrips {
		fw, err := local.NewLocalFileWriter(filepath.Join(input, "trips", "yellow_tripdata_2024-01.parquet"))
		require.NoError(t, err)
		pw, err := writer.NewParquetWriter(fw, new(tripRow), 1)
		require.NoError(t, err)
		// 2024-01-01T10:30:00Z
		require.NoError(t, pw.Write(tripRow{Pickup: 1704105000000000, TripDistance: 2, TipAmount: 1, TotalAmount: 10, PaymentType: 1}))
		require.NoError(t, pw.WriteStop())
		require.NoError(t, fw.Close())
	}

	return Options{
		EmbeddedConfig: config.EmbeddedConfig(fmt.Sprintf(testConfig, root)),
		EnvFilePath:    filepath.Join(root, "missing.env"),
		DBAdapters:     []string{"sqlite"},
	}, root
}

func TestGraphsValidate(t *testing.T) {
	opts, _ := newOptions(t, false)
	assert.NoError(t, fx.ValidateApp(etlOptions(opts, context.Background(), &Outcome{})))
	assert.NoError(t, fx.ValidateApp(dashboardOptions(opts)))
	assert.NoError(t, fx.ValidateApp(inspectOptions(opts)))
}

func TestRunETL_ThenInspect(t *testing.T) {
	opts, root := newOptions(t, true)
	ctx := context.Background()

	require.NoError(t, RunETL(ctx, opts))
	assert.FileExists(t, filepath.Join(root, "taxiweather.prom"))

	report, err := Inspect(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Table.Rows)
	assert.Equal(t, int64(1), report.Table.TotalRides)
	assert.Equal(t, "2024-01-01", report.Table.FirstDate)
	assert.Equal(t, []int64{1}, report.Table.PaymentTypes)
	require.NotNil(t, report.LastRun)
	assert.Equal(t, model.BatchStatusCompleted, report.LastRun.Status)
	assert.Len(t, report.LastRun.StepExecutions, 6)

	var out bytes.Buffer
	require.NoError(t, WriteReport(&out, report))
	assert.Contains(t, out.String(), "rows:          1")
	assert.Contains(t, out.String(), "dates:         2024-01-01 .. 2024-01-01")
	assert.Contains(t, out.String(), "last run: taxiWeatherETL COMPLETED")
}

func TestRunETL_IncrementsRunID(t *testing.T) {
	opts, _ := newOptions(t, true)
	ctx := context.Background()

	require.NoError(t, RunETL(ctx, opts))
	require.NoError(t, RunETL(ctx, opts))

	report, err := Inspect(ctx, opts)
	require.NoError(t, err)
	require.NotNil(t, report.LastRun)
	assert.EqualValues(t, 2, report.LastRun.Parameters["run.id"])
	assert.NotEmpty(t, report.LastRun.Parameters["started_at"])
	assert.Equal(t, int64(1), report.Table.Rows)
}

func TestRunETL_ReturnsJobFailure(t *testing.T) {
	opts, _ := newOptions(t, false)

	err := RunETL(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindIO), "got %v", err)
}

func TestRunDashboard_MissingTableFailsStartup(t *testing.T) {
	opts, _ := newOptions(t, false)

	err := RunDashboard(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindPersistence), "got %v", err)
}

func TestRunDashboard_StopsOnCancel(t *testing.T) {
	opts, _ := newOptions(t, true)
	require.NoError(t, RunETL(context.Background(), opts))

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(300*time.Millisecond, cancel)
	defer timer.Stop()
	assert.NoError(t, RunDashboard(ctx, opts))
}

func TestInspect_BeforeAnyRun(t *testing.T) {
	opts, _ := newOptions(t, false)

	_, err := Inspect(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindPersistence))
}

func TestOverridesApply(t *testing.T) {
	opts, _ := newOptions(t, false)
	opts.Overrides = []func(*config.Config){
		func(cfg *config.Config) { cfg.App.Dashboard.Addr = "127.0.0.1:9999" },
	}
	var cfg *config.Config
	app := fx.New(baseOptions(opts), fx.Populate(&cfg))
	require.NoError(t, app.Err())
	assert.Equal(t, "127.0.0.1:9999", cfg.App.Dashboard.Addr)
}
