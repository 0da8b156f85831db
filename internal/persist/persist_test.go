package persist

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/taxiweather/internal/domain/entity"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database"
	gormadapter "github.com/tigerroll/taxiweather/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/taxiweather/pkg/batch/core/config"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
)

func newResolver(t *testing.T) database.DBConnectionResolver {
	t.Helper()
	cfg := config.NewConfig()
	cfg.App.DatabaseConfigs = map[string]interface{}{
		"output": map[string]interface{}{
			"type":     "sqlite",
			"database": filepath.Join(t.TempDir(), "nyc_taxi_data.db"),
		},
	}
	resolver := gormadapter.NewGormDBConnectionResolver(gormadapter.DBConnectionResolverParams{
		DBProviders: []database.DBProvider{sqlite.NewProvider(cfg)},
		Cfg:         cfg,
	})
	t.Cleanup(func() { resolver.CloseAll() })
	return resolver
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestJoin_KeepsOnlyDatesOnBothSides(t *testing.T) {
	aggregates := []entity.HourlyAggregate{
		{PickupDate: day(2024, 1, 1), PickupHour: 10, PaymentType: 1, TotalRides: 1, TotalDistance: 2, TotalTips: 1, TotalAmount: 10},
		{PickupDate: day(2024, 1, 2), PickupHour: 0, PaymentType: 2, TotalRides: 3},
		{PickupDate: day(2024, 1, 3), PickupHour: 5, PaymentType: 1, TotalRides: 4},
	}
	days := []entity.WeatherDay{
		{Date: day(2024, 1, 1), Temp: entity.Float64(5.0)},
		{Date: day(2024, 1, 3), Temp: entity.Float64(-1.0), Snow: entity.Float64(2)},
		{Date: day(2024, 1, 9), Temp: entity.Float64(0)},
	}

	out, err := Join(aggregates, days)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "2024-01-01", out[0].PickupDate)
	assert.Equal(t, int32(10), out[0].PickupHour)
	assert.Equal(t, 5.0, *out[0].Temp)
	assert.Equal(t, "2024-01-03", out[1].PickupDate)
	assert.Equal(t, 2.0, *out[1].Snow)
	for _, row := range out {
		assert.NotEqual(t, "2024-01-02", row.PickupDate)
	}
}

func TestJoin_FirstWeatherEntryWinsAndNullsStayNull(t *testing.T) {
	aggregates := []entity.HourlyAggregate{
		{PickupDate: day(2024, 1, 2), PickupHour: 23, PaymentType: 2, TotalRides: 7, TotalAmount: 70},
		{PickupDate: day(2024, 1, 2), PickupHour: 1, PaymentType: 1, TotalRides: 1},
	}
	days := []entity.WeatherDay{
		{Date: day(2024, 1, 2), Temp: entity.Float64(3.5), TempMax: entity.Float64(6)},
		{Date: day(2024, 1, 2), Temp: entity.Float64(99)},
	}

	out, err := Join(aggregates, days)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int32(23), out[0].PickupHour, "aggregate order is kept")
	assert.Equal(t, int64(7), out[0].TotalRides)
	assert.Equal(t, 70.0, out[0].TotalAmount)
	assert.Equal(t, int32(1), out[1].PickupHour)
	for _, row := range out {
		assert.Equal(t, 3.5, *row.Temp)
		assert.Equal(t, 6.0, *row.TempMax)
		assert.Nil(t, row.Snow)
		assert.Nil(t, row.Humidity)
	}
}

func TestJoin_NoWeather(t *testing.T) {
	aggregates := []entity.HourlyAggregate{{PickupDate: day(2024, 1, 1), TotalRides: 1}}

	out, err := Join(aggregates, nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = Join(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func singleTripRow() entity.TaxiTrip {
	return entity.TaxiTrip{
		PickupDate: "2024-01-01", PickupHour: 10, PaymentType: 1,
		TotalRides: 1, TotalDistance: 2.0, TotalTips: 1.0, TotalAmount: 10.0,
		Temp: entity.Float64(5.0),
	}
}

func TestPersister_SingleTrip(t *testing.T) {
	ctx := context.Background()
	p := NewPersister(newResolver(t), "output", 0)

	require.NoError(t, p.Replace(ctx, []entity.TaxiTrip{singleTripRow()}))

	rows, err := p.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].TotalRides)
	assert.Equal(t, 2.0, rows[0].TotalDistance)
	assert.Equal(t, 1.0, rows[0].TotalTips)
	assert.Equal(t, 10.0, rows[0].TotalAmount)
	require.NotNil(t, rows[0].Temp)
	assert.Equal(t, 5.0, *rows[0].Temp)
	assert.Nil(t, rows[0].Snow)
}

func TestPersister_ReplaceIsIdempotentAndSorted(t *testing.T) {
	ctx := context.Background()
	p := NewPersister(newResolver(t), "output", 2)

	rows := []entity.TaxiTrip{
		{PickupDate: "2024-01-02", PickupHour: 1, PaymentType: 2, TotalRides: 7},
		{PickupDate: "2024-01-01", PickupHour: 23, PaymentType: 1, TotalRides: 3},
		{PickupDate: "2024-01-02", PickupHour: 1, PaymentType: 1, TotalRides: 5},
		singleTripRow(),
		{PickupDate: "2024-01-03", PickupHour: 0, PaymentType: 4, TotalRides: 1},
	}

	require.NoError(t, p.Replace(ctx, rows))
	first, err := p.LoadAll(ctx)
	require.NoError(t, err)

	require.NoError(t, p.Replace(ctx, rows))
	second, err := p.LoadAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, second, 5)
	assert.Equal(t, int32(10), second[0].PickupHour)
	assert.Equal(t, int64(5), second[2].TotalRides)
	assert.Equal(t, int64(7), second[3].TotalRides)

	// The input slice is left as given.
	assert.Equal(t, "2024-01-02", rows[0].PickupDate)

	require.NoError(t, p.Replace(ctx, nil))
	empty, err := p.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPersister_DuplicateKeyIsPersistenceError(t *testing.T) {
	ctx := context.Background()
	p := NewPersister(newResolver(t), "output", 10)

	require.NoError(t, p.Replace(ctx, []entity.TaxiTrip{singleTripRow()}))
	err := p.Replace(ctx, []entity.TaxiTrip{singleTripRow(), singleTripRow()})
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindPersistence))

	// The failed insert left the previous table in place.
	rows, err := p.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestPersister_MissingTableAndConnection(t *testing.T) {
	ctx := context.Background()
	resolver := newResolver(t)

	_, err := NewPersister(resolver, "output", 10).LoadAll(ctx)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindPersistence))
	assert.Contains(t, err.Error(), "does not exist")

	err = NewPersister(resolver, "absent", 10).Replace(ctx, []entity.TaxiTrip{singleTripRow()})
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindPersistence))
}
