// Package aggregate buckets trip records by pickup date, pickup hour and payment type.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/tigerroll/taxiweather/internal/domain/entity"
	config "github.com/tigerroll/taxiweather/pkg/batch/core/config"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/frame"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

const moduleName = "aggregate"

// Stats describes one aggregation run.
type Stats struct {
	Input int
	// InvalidTimestamp counts rows whose pickup time was null or out of range.
	InvalidTimestamp int
	// NullPaymentType counts rows with a valid pickup time but no payment type.
	NullPaymentType int
	Groups          int
}

// Excluded is the number of input rows left out of every group.
func (s Stats) Excluded() int {
	return s.InvalidTimestamp + s.NullPaymentType
}

const (
	colDate       = "pickup_date"
	colHour       = "pickup_hour"
	colPayment    = "payment_type"
	colDistance   = "trip_distance"
	colPassengers = "passenger_count"
	colTips       = "tip_amount"
	colAmount     = "total_amount"
)

var groupKeys = []string{colDate, colHour, colPayment}

// Aggregate groups records by (pickup date, pickup hour, payment type).
// total_rides counts the rows of a group; the sums skip null cells.
// Rows without a usable pickup time or payment type are excluded and counted in Stats.
// The result is sorted by date, hour and payment type.
func Aggregate(records []entity.TripRecord, policy config.InvalidTimestampPolicy) ([]entity.HourlyAggregate, Stats, error) {
	if policy != config.InvalidTimestampsExclude {
		logger.Warnf("Unknown invalid timestamp policy '%s', excluding invalid rows.", policy)
	}

	stats := Stats{Input: len(records)}
	var (
		dates                               []string
		hours, payments                     []int
		distance, passengers, tips, amounts []float64
	)
	for i := range records {
		r := &records[i]
		if r.PickupRaw == nil {
			stats.InvalidTimestamp++
			continue
		}
		ts, ok := PickupTime(*r.PickupRaw, r.PickupUnit)
		if !ok {
			stats.InvalidTimestamp++
			continue
		}
		if r.PaymentType == nil {
			stats.NullPaymentType++
			continue
		}
		dates = append(dates, ts.Format(entity.DateLayout))
		hours = append(hours, ts.Hour())
		payments = append(payments, int(*r.PaymentType))
		// Null cells add nothing to a sum.
		distance = append(distance, value(r.TripDistance))
		passengers = append(passengers, value(r.PassengerCount))
		tips = append(tips, value(r.TipAmount))
		amounts = append(amounts, value(r.TotalAmount))
	}

	df := dataframe.New(
		series.New(dates, series.String, colDate),
		series.New(hours, series.Int, colHour),
		series.New(payments, series.Int, colPayment),
		series.New(distance, series.Float, colDistance),
		series.New(passengers, series.Float, colPassengers),
		series.New(tips, series.Float, colTips),
		series.New(amounts, series.Float, colAmount),
	)
	grouped, ok, err := frame.GroupBy(df, groupKeys,
		frame.Count(colPayment),
		frame.Sum(colDistance),
		frame.Sum(colPassengers),
		frame.Sum(colTips),
		frame.Sum(colAmount),
	)
	if err != nil {
		return nil, stats, exception.NewFormatError(moduleName, "failed to group trip records", err)
	}
	out := []entity.HourlyAggregate{}
	if ok {
		out, err = collect(grouped)
		if err != nil {
			return nil, stats, exception.NewFormatError(moduleName, "failed to read grouped trip records", err)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.PickupDate.Equal(b.PickupDate) {
			return a.PickupDate.Before(b.PickupDate)
		}
		if a.PickupHour != b.PickupHour {
			return a.PickupHour < b.PickupHour
		}
		return a.PaymentType < b.PaymentType
	})
	stats.Groups = len(out)

	logger.Infof("Aggregated %d trip records into %d hourly groups (%d invalid timestamps, %d without payment type).",
		stats.Input, stats.Groups, stats.InvalidTimestamp, stats.NullPaymentType)
	return out, stats, nil
}

func collect(df dataframe.DataFrame) ([]entity.HourlyAggregate, error) {
	dates, err := frame.Strings(df, colDate)
	if err != nil {
		return nil, err
	}
	hours, err := frame.Ints(df, colHour)
	if err != nil {
		return nil, err
	}
	payments, err := frame.Ints(df, colPayment)
	if err != nil {
		return nil, err
	}
	sums := make(map[string][]float64)
	for _, a := range []frame.Agg{
		frame.Count(colPayment), frame.Sum(colDistance), frame.Sum(colPassengers), frame.Sum(colTips), frame.Sum(colAmount),
	} {
		if sums[a.Name()], err = frame.Floats(df, a.Name()); err != nil {
			return nil, err
		}
	}

	out := make([]entity.HourlyAggregate, len(dates))
	for i := range dates {
		date, err := time.Parse(entity.DateLayout, dates[i])
		if err != nil {
			return nil, err
		}
		out[i] = entity.HourlyAggregate{
			PickupDate:     date,
			PickupHour:     hours[i],
			PaymentType:    int64(payments[i]),
			TotalRides:     int64(sums[frame.Count(colPayment).Name()][i]),
			TotalDistance:  sums[frame.Sum(colDistance).Name()][i],
			TotalPassenger: sums[frame.Sum(colPassengers).Name()][i],
			TotalTips:      sums[frame.Sum(colTips).Name()][i],
			TotalAmount:    sums[frame.Sum(colAmount).Name()][i],
		}
	}
	return out, nil
}

// PickupTime converts a raw timestamp into UTC wall-clock time.
// It reports false for values outside the nanosecond-representable range.
func PickupTime(raw int64, unit entity.TimeUnit) (time.Time, bool) {
	var scale int64
	switch unit {
	case entity.UnitMillis:
		scale = int64(time.Millisecond)
	case entity.UnitMicros:
		scale = int64(time.Microsecond)
	default:
		scale = 1
	}
	// math.MinInt64 nanoseconds is the NaT sentinel.
	if raw > math.MaxInt64/scale || raw <= math.MinInt64/scale {
		return time.Time{}, false
	}
	return time.Unix(0, raw*scale).UTC(), true
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
