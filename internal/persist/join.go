// Package persist joins hourly aggregates with the weather of their day and owns the taxi_trips table.
package persist

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/tigerroll/taxiweather/internal/domain/entity"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/frame"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

const (
	colDate = "pickup_date"
	// colIndex carries the position of each aggregate through the join.
	colIndex = "aggregate_index"
)

type weatherColumn struct {
	name string
	get  func(*entity.WeatherDay) *float64
	set  func(*entity.TaxiTrip, *float64)
}

var weatherColumns = []weatherColumn{
	{"tempmax", func(d *entity.WeatherDay) *float64 { return d.TempMax }, func(t *entity.TaxiTrip, v *float64) { t.TempMax = v }},
	{"tempmin", func(d *entity.WeatherDay) *float64 { return d.TempMin }, func(t *entity.TaxiTrip, v *float64) { t.TempMin = v }},
	{"temp", func(d *entity.WeatherDay) *float64 { return d.Temp }, func(t *entity.TaxiTrip, v *float64) { t.Temp = v }},
	{"feelslikemax", func(d *entity.WeatherDay) *float64 { return d.FeelsLikeMax }, func(t *entity.TaxiTrip, v *float64) { t.FeelsLikeMax = v }},
	{"feelslikemin", func(d *entity.WeatherDay) *float64 { return d.FeelsLikeMin }, func(t *entity.TaxiTrip, v *float64) { t.FeelsLikeMin = v }},
	{"feelslike", func(d *entity.WeatherDay) *float64 { return d.FeelsLike }, func(t *entity.TaxiTrip, v *float64) { t.FeelsLike = v }},
	{"humidity", func(d *entity.WeatherDay) *float64 { return d.Humidity }, func(t *entity.TaxiTrip, v *float64) { t.Humidity = v }},
	{"snow", func(d *entity.WeatherDay) *float64 { return d.Snow }, func(t *entity.TaxiTrip, v *float64) { t.Snow = v }},
}

// Join inner-joins aggregates with days on pickup date = weather date.
// Aggregates without weather for their date are dropped. Output keeps the order of aggregates.
// When days repeats a date, its first entry wins.
func Join(aggregates []entity.HourlyAggregate, days []entity.WeatherDay) ([]entity.TaxiTrip, error) {
	dates := make([]string, len(aggregates))
	index := make([]int, len(aggregates))
	for i, a := range aggregates {
		dates[i] = a.PickupDate.Format(entity.DateLayout)
		index[i] = i
	}
	left := dataframe.New(
		series.New(dates, series.String, colDate),
		series.New(index, series.Int, colIndex),
	)

	joined := left.InnerJoin(weatherFrame(days), colDate)
	if joined.Err != nil {
		return nil, exception.NewFormatError(moduleName, "failed to join aggregates with weather", joined.Err)
	}
	out, err := collect(joined, aggregates)
	if err != nil {
		return nil, exception.NewFormatError(moduleName, "failed to read joined rows", err)
	}

	if dropped := len(aggregates) - len(out); dropped > 0 {
		logger.Warnf("Join: %d hourly groups had no weather for their date and were dropped.", dropped)
	}
	return out, nil
}

func weatherFrame(days []entity.WeatherDay) dataframe.DataFrame {
	seen := make(map[string]bool, len(days))
	var (
		dates  []string
		values = make([][]*float64, len(weatherColumns))
	)
	for i := range days {
		d := &days[i]
		date := d.Date.Format(entity.DateLayout)
		if seen[date] {
			continue
		}
		seen[date] = true
		dates = append(dates, date)
		for c, col := range weatherColumns {
			values[c] = append(values[c], col.get(d))
		}
	}

	columns := []series.Series{series.New(dates, series.String, colDate)}
	for c, col := range weatherColumns {
		columns = append(columns, frame.Column(col.name, values[c]))
	}
	return dataframe.New(columns...)
}

func collect(joined dataframe.DataFrame, aggregates []entity.HourlyAggregate) ([]entity.TaxiTrip, error) {
	index, err := frame.Ints(joined, colIndex)
	if err != nil {
		return nil, err
	}
	weather := make([][]*float64, len(weatherColumns))
	for c, col := range weatherColumns {
		if weather[c], err = frame.Nullable(joined, col.name); err != nil {
			return nil, err
		}
	}

	out := make([]entity.TaxiTrip, len(index))
	for i, idx := range index {
		a := aggregates[idx]
		out[i] = entity.TaxiTrip{
			PickupDate:     a.PickupDate.Format(entity.DateLayout),
			PickupHour:     int32(a.PickupHour),
			PaymentType:    a.PaymentType,
			TotalRides:     a.TotalRides,
			TotalDistance:  a.TotalDistance,
			TotalPassenger: a.TotalPassenger,
			TotalTips:      a.TotalTips,
			TotalAmount:    a.TotalAmount,
		}
		for c, col := range weatherColumns {
			col.set(&out[i], weather[c][i])
		}
	}
	return out, nil
}
