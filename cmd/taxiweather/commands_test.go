package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	config "github.com/tigerroll/taxiweather/pkg/batch/core/config"
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

const cliConfig = `
taxiweather:
  system:
    logging:
      level: ERROR
  database:
    output:
      type: sqlite
      database: %[1]s/out.db
  storage:
    input:
      type: local
      base_dir: %[1]s/in
      read_only: true
    export:
      type: local
      base_dir: %[1]s/export
  observability:
    metrics:
      enabled: false
`

func fixture(t *testing.T) (string, []byte) {
	t.Helper()
	root := t.TempDir()
	in := filepath.Join(root, "in")
	require.NoError(t, os.MkdirAll(filepath.Join(in, "january"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "daily.csv"),
		[]byte("datetime,tempmax,tempmin,temp,feelslikemax,feelslikemin,feelslike,humidity,snow\n2024-01-01,8,2,5,6,0,3,70,0\n"), 0o644))

	fw, err := local.NewLocalFileWriter(filepath.Join(in, "january", "trips.parquet"))
	require.NoError(t, err)
	pw, err := writer.NewParquetWriter(fw, new(tripRow), 1)
	require.NoError(t, err)
	require.NoError(t, pw.Write(tripRow{Pickup: 1704105000000000, TipAmount: 1, TotalAmount: 10, PaymentType: 1}))
	require.NoError(t, pw.WriteStop())
	require.NoError(t, fw.Close())

	return root, []byte(fmt.Sprintf(cliConfig, root))
}

func execute(t *testing.T, embedded []byte, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(embedded)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env"), "--db-adapters", "sqlite"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestETLFlagsThenInspect(t *testing.T) {
	root, embedded := fixture(t)

	_, err := execute(t, embedded, "etl", "--trips-dir", "january", "--weather", "daily.csv", "--export")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "export", "taxi_trips.parquet"))

	out, err := execute(t, embedded, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "rows:          1")
	assert.Contains(t, out, "payment types: [1]")
	assert.Contains(t, out, "last run: taxiWeatherETL COMPLETED")
}

func TestETLWithoutTripFilesFails(t *testing.T) {
	_, embedded := fixture(t)

	// the default trips directory is the input root, which holds no parquet file
	_, err := execute(t, embedded, "etl", "--weather", "daily.csv")
	assert.Error(t, err)
}

func TestUnknownSubcommand(t *testing.T) {
	_, embedded := fixture(t)
	_, err := execute(t, embedded, "frobnicate")
	assert.Error(t, err)
}

func TestSetStepProperty(t *testing.T) {
	cfg := &config.Config{}
	setStepProperty("export", "enabled", true)(cfg)
	setStepProperty("export", "object_name", "x.parquet")(cfg)
	assert.Equal(t, map[string]interface{}{"enabled": true, "object_name": "x.parquet"}, cfg.StepProperties("export"))
}

func TestOptionsSplitsAdapters(t *testing.T) {
	flags := &globalFlags{envFile: "a.env", dbAdapters: " sqlite, ,postgres "}
	opts := flags.options([]byte("x"))
	assert.Equal(t, []string{"sqlite", "postgres"}, opts.DBAdapters)
	assert.Equal(t, "a.env", opts.EnvFilePath)
	assert.Empty(t, opts.Overrides)
}
