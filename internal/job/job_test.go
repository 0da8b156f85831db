package job

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	etlconfig "github.com/tigerroll/taxiweather/internal/config"
	"github.com/tigerroll/taxiweather/internal/domain/entity"
	"github.com/tigerroll/taxiweather/internal/persist"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database"
	gormadapter "github.com/tigerroll/taxiweather/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/storage"
	storageLocal "github.com/tigerroll/taxiweather/pkg/batch/adapter/storage/local"
	coreConfig "github.com/tigerroll/taxiweather/pkg/batch/core/config"
	"github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
	"github.com/tigerroll/taxiweather/pkg/batch/core/job/runner"
	"github.com/tigerroll/taxiweather/pkg/batch/infrastructure/repository/inmemory"
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

const weatherCSV = "name,datetime,tempmax,tempmin,temp,feelslikemax,feelslikemin,feelslike,humidity,snow\n" +
	"new york,2024-01-01,8,2,5,6,0,3,70,0\n"

type fixture struct {
	cfg    *coreConfig.Config
	input  string
	export string
	deps   Dependencies
}

func newFixture(t *testing.T, trips ...tripRow) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{input: filepath.Join(root, "datas"), export: filepath.Join(root, "export")}

	require.NoError(t, os.MkdirAll(filepath.Join(f.input, "trips"), 0o755))
	if len(trips) > 0 {
		fw, err := local.NewLocalFileWriter(filepath.Join(f.input, "trips", "yellow_tripdata_2024-01.parquet"))
		require.NoError(t, err)
		pw, err := writer.NewParquetWriter(fw, new(tripRow), 1)
		require.NoError(t, err)
		for _, trip := range trips {
			require.NoError(t, pw.Write(trip))
		}
		require.NoError(t, pw.WriteStop())
		require.NoError(t, fw.Close())
	}
	require.NoError(t, os.WriteFile(filepath.Join(f.input, "weather.csv"), []byte(weatherCSV), 0o644))

	cfg := coreConfig.NewConfig()
	cfg.App.DatabaseConfigs = map[string]interface{}{
		"output": map[string]interface{}{"type": "sqlite", "database": filepath.Join(root, "nyc_taxi_data.db")},
	}
	cfg.App.StorageConfigs = map[string]interface{}{
		"input":  map[string]interface{}{"type": "local", "base_dir": f.input, "read_only": true},
		"export": map[string]interface{}{"type": "local", "base_dir": f.export},
	}
	cfg.App.Job.Steps = map[string]map[string]interface{}{
		etlconfig.StepLoadTrips: {"dir": "trips"},
		etlconfig.StepExport:    {"enabled": true},
	}
	f.cfg = cfg

	dbResolver := gormadapter.NewGormDBConnectionResolver(gormadapter.DBConnectionResolverParams{
		DBProviders: []database.DBProvider{sqlite.NewProvider(cfg)},
		Cfg:         cfg,
	})
	storageResolver := storage.NewConnectionResolver(storage.ConnectionResolverParams{
		Providers: []storage.StorageProvider{storageLocal.NewLocalProvider(cfg)},
		Cfg:       cfg,
	})
	t.Cleanup(func() {
		dbResolver.CloseAll()
		storageResolver.CloseAll()
	})

	f.deps = Dependencies{
		Cfg:             cfg,
		JobRepository:   inmemory.NewInMemoryJobRepository(),
		DBResolver:      dbResolver,
		StorageResolver: storageResolver,
	}
	return f
}

func (f *fixture) run(t *testing.T) (*model.JobExecution, error) {
	t.Helper()
	j, err := NewETLJob(f.deps)
	require.NoError(t, err)
	return runner.NewSimpleJobRunner(f.deps.JobRepository, nil).Run(context.Background(), j, nil)
}

func TestETLJob_SingleTrip(t *testing.T) {
	// 2024-01-01T10:30:00Z
	f := newFixture(t, tripRow{
		Pickup:       1704105000000000,
		PULocationID: 161,
		TripDistance: 2.0,
		TipAmount:    1.0,
		TotalAmount:  10.0,
		PaymentType:  1,
	})

	je, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	require.Len(t, je.StepExecutions, 6)

	names := make([]string, len(je.StepExecutions))
	for i, se := range je.StepExecutions {
		names[i] = se.StepName
		assert.Equal(t, model.BatchStatusCompleted, se.Status, se.StepName)
	}
	assert.Equal(t, []string{"loadTrips", "loadWeather", "aggregateTrips", "normalizeWeather", "persist", "export"}, names)
	persistStep := je.StepExecutions[4]
	assert.Equal(t, 1, persistStep.WriteCount)

	rows, err := persist.NewPersister(f.deps.DBResolver, "output", 0).LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "2024-01-01", row.PickupDate)
	assert.Equal(t, int32(10), row.PickupHour)
	assert.Equal(t, int64(1), row.PaymentType)
	assert.Equal(t, int64(1), row.TotalRides)
	assert.Equal(t, 2.0, row.TotalDistance)
	assert.Equal(t, 1.0, row.TotalTips)
	assert.Equal(t, 10.0, row.TotalAmount)
	require.NotNil(t, row.Temp)
	assert.Equal(t, 5.0, *row.Temp)

	assert.Equal(t, 1, je.StepExecutions[5].WriteCount)
	assert.FileExists(t, filepath.Join(f.export, "taxi_trips.parquet"))
}

func TestETLJob_RerunReplacesTable(t *testing.T) {
	trip := tripRow{Pickup: 1704105000000000, TripDistance: 1, PaymentType: 2}
	f := newFixture(t, trip, trip)

	_, err := f.run(t)
	require.NoError(t, err)
	je, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)

	rows, err := persist.NewPersister(f.deps.DBResolver, "output", 0).LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].TotalRides)
	assert.Equal(t, 2.0, rows[0].TotalDistance)
}

func TestETLJob_NoTripFilesFailsWithIOError(t *testing.T) {
	f := newFixture(t)

	je, err := f.run(t)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindIO))
	assert.Equal(t, model.BatchStatusFailed, je.Status)
	require.Len(t, je.StepExecutions, 1, "later steps do not run")

	_, err = persist.NewPersister(f.deps.DBResolver, "output", 0).LoadAll(context.Background())
	assert.True(t, exception.IsKind(err, exception.KindPersistence), "taxi_trips is never created")
}

func TestNewETLJob_InvalidStepProperties(t *testing.T) {
	f := newFixture(t)
	f.cfg.App.Job.Steps[etlconfig.StepPersist] = map[string]interface{}{"batch_size": 0}

	_, err := NewETLJob(f.deps)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindConfig))
}

func TestState_Reset(t *testing.T) {
	s := &State{Days: []entity.WeatherDay{{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}}}
	s.Reset()
	assert.Nil(t, s.Days)
}
