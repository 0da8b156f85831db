// Package presentation derives the dashboard views from the persisted taxi_trips rows.
package presentation

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/tigerroll/taxiweather/internal/domain/entity"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/frame"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

const (
	colDate    = "pickup_date"
	colHour    = "pickup_hour"
	colMonth   = "month"
	colWeekday = "weekday"
	colPayment = "payment_type"
	colRides   = "total_rides"
	colTips    = "total_tips"
	colAmount  = "total_amount"
	colTemp    = "temp"
)

// State holds the rows the dashboard serves as one dataframe with their calendar fields.
// It is never modified after NewState, so any number of goroutines may call its methods.
type State struct {
	df     dataframe.DataFrame
	months []string
}

// NewState derives the calendar fields of rows. Rows with an unparseable pickup_date are skipped.
func NewState(rows []entity.TaxiTrip) *State {
	var (
		dates, months, weekdays []string
		hours, payments, rides  []int
		tips, amounts           []float64
		temps                   []*float64
	)
	seen := make(map[time.Month]bool)
	for _, r := range rows {
		start, err := r.HourStart()
		if err != nil {
			logger.Warnf("Skipping row with invalid pickup_date '%s': %v", r.PickupDate, err)
			continue
		}
		dates = append(dates, r.PickupDate)
		hours = append(hours, int(r.PickupHour))
		months = append(months, start.Month().String())
		weekdays = append(weekdays, start.Weekday().String())
		payments = append(payments, int(r.PaymentType))
		rides = append(rides, int(r.TotalRides))
		tips = append(tips, r.TotalTips)
		amounts = append(amounts, r.TotalAmount)
		temps = append(temps, r.Temp)
		seen[start.Month()] = true
	}

	s := &State{df: dataframe.New(
		series.New(dates, series.String, colDate),
		series.New(hours, series.Int, colHour),
		series.New(months, series.String, colMonth),
		series.New(weekdays, series.String, colWeekday),
		series.New(payments, series.Int, colPayment),
		series.New(rides, series.Int, colRides),
		series.New(tips, series.Float, colTips),
		series.New(amounts, series.Float, colAmount),
		frame.Column(colTemp, temps),
	)}
	for m := time.January; m <= time.December; m++ {
		if seen[m] {
			s.months = append(s.months, m.String())
		}
	}
	return s
}

// Len is the number of rows in the state.
func (s *State) Len() int {
	return s.df.Nrow()
}

// Months lists the month names present in the data in calendar order.
func (s *State) Months() []string {
	out := make([]string, len(s.months))
	copy(out, s.months)
	return out
}

// HourlyPoint is one hour of the hourly view.
type HourlyPoint struct {
	Time       time.Time `json:"time"`
	Month      string    `json:"month"`
	TotalRides int64     `json:"total_rides"`
	TotalTips  float64   `json:"total_tips"`
	// Temp is the mean temperature of the hour's rows; null when none carried one.
	Temp *float64 `json:"temp"`
}

// WeekdayPoint is one day of the weekday view. TotalRides is null for days without rows.
type WeekdayPoint struct {
	Weekday    string `json:"weekday"`
	TotalRides *int64 `json:"total_rides"`
}

// HourPoint is one hour of the hour-of-day view. TotalRides is null for hours without rows.
type HourPoint struct {
	Hour       int    `json:"hour"`
	TotalRides *int64 `json:"total_rides"`
}

// PaymentPoint is one payment type of the payment view.
type PaymentPoint struct {
	PaymentType int64   `json:"payment_type"`
	Label       string  `json:"label"`
	TotalRides  int64   `json:"total_rides"`
	TotalTips   float64 `json:"total_tips"`
	TotalAmount float64 `json:"total_amount"`
}

// Views are the charts for one month filter.
type Views struct {
	Month     string         `json:"month"`
	Hourly    []HourlyPoint  `json:"hourly"`
	Weekday   []WeekdayPoint `json:"weekday"`
	HourOfDay []HourPoint    `json:"hour_of_day"`
	Payment   []PaymentPoint `json:"payment"`
}

// Weekdays is the fixed order of the weekday view.
var Weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// Views builds every view from the rows of month. An empty month selects all rows.
// A month without rows yields an empty hourly view and all-null weekday and hour-of-day views.
func (s *State) Views(month string) (Views, error) {
	df := s.df
	if month != "" {
		df = df.Filter(dataframe.F{Colname: colMonth, Comparator: series.Eq, Comparando: month})
		if df.Err != nil {
			return Views{}, fmt.Errorf("filter month '%s': %w", month, df.Err)
		}
	}

	v := Views{Month: month}
	var err error
	if v.Hourly, err = hourlyView(df); err != nil {
		return Views{}, fmt.Errorf("hourly view: %w", err)
	}
	if v.Weekday, err = weekdayView(df); err != nil {
		return Views{}, fmt.Errorf("weekday view: %w", err)
	}
	if v.HourOfDay, err = hourOfDayView(df); err != nil {
		return Views{}, fmt.Errorf("hour-of-day view: %w", err)
	}
	if v.Payment, err = paymentView(df); err != nil {
		return Views{}, fmt.Errorf("payment view: %w", err)
	}
	return v, nil
}

func hourStart(date string, hour int) (time.Time, error) {
	d, err := time.Parse(entity.DateLayout, date)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(hour) * time.Hour), nil
}

func hourlyView(df dataframe.DataFrame) ([]HourlyPoint, error) {
	out := []HourlyPoint{}
	g, ok, err := frame.GroupBy(df, []string{colDate, colHour, colMonth}, frame.Sum(colRides), frame.Sum(colTips))
	if err != nil || !ok {
		return out, err
	}
	temps, err := meanTemps(df)
	if err != nil {
		return nil, err
	}

	dates, err := frame.Strings(g, colDate)
	if err != nil {
		return nil, err
	}
	hours, err := frame.Ints(g, colHour)
	if err != nil {
		return nil, err
	}
	months, err := frame.Strings(g, colMonth)
	if err != nil {
		return nil, err
	}
	rides, err := frame.Floats(g, frame.Sum(colRides).Name())
	if err != nil {
		return nil, err
	}
	tips, err := frame.Floats(g, frame.Sum(colTips).Name())
	if err != nil {
		return nil, err
	}

	for i := range dates {
		start, err := hourStart(dates[i], hours[i])
		if err != nil {
			return nil, err
		}
		p := HourlyPoint{Time: start, Month: months[i], TotalRides: int64(rides[i]), TotalTips: tips[i]}
		if t, ok := temps[start]; ok {
			p.Temp = entity.Float64(t)
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// meanTemps averages the temperature of each hour over the rows that carry one.
func meanTemps(df dataframe.DataFrame) (map[time.Time]float64, error) {
	present := df.Filter(dataframe.F{
		Colname:    colTemp,
		Comparator: series.CompFunc,
		Comparando: func(e series.Element) bool { return !e.IsNA() },
	})
	out := make(map[time.Time]float64)
	g, ok, err := frame.GroupBy(present, []string{colDate, colHour}, frame.Mean(colTemp))
	if err != nil || !ok {
		return out, err
	}
	dates, err := frame.Strings(g, colDate)
	if err != nil {
		return nil, err
	}
	hours, err := frame.Ints(g, colHour)
	if err != nil {
		return nil, err
	}
	means, err := frame.Floats(g, frame.Mean(colTemp).Name())
	if err != nil {
		return nil, err
	}
	for i := range dates {
		start, err := hourStart(dates[i], hours[i])
		if err != nil {
			return nil, err
		}
		out[start] = means[i]
	}
	return out, nil
}

// rideTotals sums total_rides per value of key.
func rideTotals(df dataframe.DataFrame, key string) (map[string]int64, error) {
	out := make(map[string]int64)
	g, ok, err := frame.GroupBy(df, []string{key}, frame.Sum(colRides))
	if err != nil || !ok {
		return out, err
	}
	keys, err := frame.Strings(g, key)
	if err != nil {
		return nil, err
	}
	rides, err := frame.Floats(g, frame.Sum(colRides).Name())
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		out[k] = int64(rides[i])
	}
	return out, nil
}

func weekdayView(df dataframe.DataFrame) ([]WeekdayPoint, error) {
	sums, err := rideTotals(df, colWeekday)
	if err != nil {
		return nil, err
	}
	out := make([]WeekdayPoint, len(Weekdays))
	for i, d := range Weekdays {
		out[i] = WeekdayPoint{Weekday: d.String()}
		if v, ok := sums[d.String()]; ok {
			out[i].TotalRides = entity.Int64(v)
		}
	}
	return out, nil
}

func hourOfDayView(df dataframe.DataFrame) ([]HourPoint, error) {
	sums, err := rideTotals(df, colHour)
	if err != nil {
		return nil, err
	}
	// Hours outside 0..23 have no slot and are left out.
	out := make([]HourPoint, 24)
	for h := range out {
		out[h] = HourPoint{Hour: h}
		if v, ok := sums[fmt.Sprint(h)]; ok {
			out[h].TotalRides = entity.Int64(v)
		}
	}
	return out, nil
}

func paymentView(df dataframe.DataFrame) ([]PaymentPoint, error) {
	out := []PaymentPoint{}
	g, ok, err := frame.GroupBy(df, []string{colPayment}, frame.Sum(colRides), frame.Sum(colTips), frame.Sum(colAmount))
	if err != nil || !ok {
		return out, err
	}
	types, err := frame.Ints(g, colPayment)
	if err != nil {
		return nil, err
	}
	sums := make(map[string][]float64)
	for _, a := range []frame.Agg{frame.Sum(colRides), frame.Sum(colTips), frame.Sum(colAmount)} {
		if sums[a.Name()], err = frame.Floats(g, a.Name()); err != nil {
			return nil, err
		}
	}
	for i, t := range types {
		out = append(out, PaymentPoint{
			PaymentType: int64(t),
			Label:       PaymentLabel(int64(t)),
			TotalRides:  int64(sums[frame.Sum(colRides).Name()][i]),
			TotalTips:   sums[frame.Sum(colTips).Name()][i],
			TotalAmount: sums[frame.Sum(colAmount).Name()][i],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentType < out[j].PaymentType })
	return out, nil
}
