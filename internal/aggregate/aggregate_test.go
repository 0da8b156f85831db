package aggregate

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/taxiweather/internal/domain/entity"
	config "github.com/tigerroll/taxiweather/pkg/batch/core/config"
)

func micros(t time.Time) *int64 {
	return entity.Int64(t.UnixMicro())
}

func trip(ts time.Time, payment int64, distance, tips, amount float64) entity.TripRecord {
	return entity.TripRecord{
		PickupRaw:    micros(ts),
		PickupUnit:   entity.UnitMicros,
		TripDistance: entity.Float64(distance),
		TipAmount:    entity.Float64(tips),
		TotalAmount:  entity.Float64(amount),
		PaymentType:  entity.Int64(payment),
	}
}

func TestAggregate_SingleTrip(t *testing.T) {
	rec := trip(time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC), 1, 2.0, 1.0, 10.0)

	out, stats, err := Aggregate([]entity.TripRecord{rec}, config.InvalidTimestampsExclude)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, entity.HourlyAggregate{
		PickupDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PickupHour:  10,
		PaymentType: 1,
		TotalRides:  1, TotalDistance: 2.0, TotalTips: 1.0, TotalAmount: 10.0,
	}, out[0])
	assert.Equal(t, Stats{Input: 1, Groups: 1}, stats)
}

func TestAggregate_GroupsAreUniqueAndSorted(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	records := []entity.TripRecord{
		trip(day.Add(23*time.Hour+59*time.Minute), 2, 1, 0, 5),
		trip(day.Add(9*time.Hour), 1, 1, 1, 5),
		trip(day.Add(9*time.Hour+15*time.Minute), 1, 2, 1, 6),
		trip(day.Add(9*time.Hour+20*time.Minute), 2, 3, 0, 7),
		trip(day.Add(-time.Minute), 1, 4, 0, 8),
	}

	out, stats, err := Aggregate(records, config.InvalidTimestampsExclude)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, 4, stats.Groups)

	seen := map[[3]int64]bool{}
	var rides int64
	for i, g := range out {
		k := [3]int64{g.PickupDate.Unix(), int64(g.PickupHour), g.PaymentType}
		assert.False(t, seen[k], "duplicate key %v", k)
		seen[k] = true
		rides += g.TotalRides
		if i > 0 {
			prev := out[i-1]
			assert.True(t, prev.PickupDate.Before(g.PickupDate) ||
				(prev.PickupDate.Equal(g.PickupDate) && (prev.PickupHour < g.PickupHour ||
					(prev.PickupHour == g.PickupHour && prev.PaymentType < g.PaymentType))))
		}
	}
	assert.Equal(t, int64(len(records)), rides)

	assert.Equal(t, 23, out[0].PickupHour)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), out[0].PickupDate)
	assert.Equal(t, 9, out[1].PickupHour)
	assert.Equal(t, int64(1), out[1].PaymentType)
	assert.Equal(t, int64(2), out[1].TotalRides)
	assert.Equal(t, 3.0, out[1].TotalDistance)
	assert.Equal(t, 11.0, out[1].TotalAmount)
}

func TestAggregate_ExcludesInvalidRowsAndSkipsNullCells(t *testing.T) {
	ts := time.Date(2024, 3, 5, 7, 0, 0, 0, time.UTC)
	noDistance := trip(ts, 1, 0, 2, 9)
	noDistance.TripDistance = nil
	noDistance.PassengerCount = entity.Float64(3)

	records := []entity.TripRecord{
		trip(ts, 1, 1.5, 0, 4),
		noDistance,
		{PickupRaw: nil, PaymentType: entity.Int64(1)},
		{PickupRaw: entity.Int64(math.MaxInt64), PickupUnit: entity.UnitMicros, PaymentType: entity.Int64(1)},
		{PickupRaw: micros(ts), PickupUnit: entity.UnitMicros},
	}

	out, stats, err := Aggregate(records, config.InvalidTimestampsExclude)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0].TotalRides)
	assert.Equal(t, 1.5, out[0].TotalDistance)
	assert.Equal(t, 3.0, out[0].TotalPassenger)
	assert.Equal(t, 2.0, out[0].TotalTips)
	assert.Equal(t, Stats{Input: 5, InvalidTimestamp: 2, NullPaymentType: 1, Groups: 1}, stats)
	assert.Equal(t, 3, stats.Excluded())
}

func TestPickupTime(t *testing.T) {
	want := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)

	got, ok := PickupTime(want.UnixMilli(), entity.UnitMillis)
	require.True(t, ok)
	assert.Equal(t, want, got)

	got, ok = PickupTime(want.UnixMicro(), entity.UnitMicros)
	require.True(t, ok)
	assert.Equal(t, want, got)

	got, ok = PickupTime(want.UnixNano(), entity.UnitNanos)
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok = PickupTime(math.MinInt64, entity.UnitNanos)
	assert.False(t, ok)

	// Year 3000 does not fit in nanoseconds.
	_, ok = PickupTime(time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC).UnixMicro(), entity.UnitMicros)
	assert.False(t, ok)
}

func TestAggregate_NoUsableRows(t *testing.T) {
	records := []entity.TripRecord{
		{PickupUnit: entity.UnitMillis, PaymentType: entity.Int64(1)},
	}
	out, stats, err := Aggregate(records, config.InvalidTimestampsExclude)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.Equal(t, Stats{Input: 1, InvalidTimestamp: 1}, stats)

	out, _, err = Aggregate(nil, config.InvalidTimestampsExclude)
	require.NoError(t, err)
	assert.Empty(t, out)
}
