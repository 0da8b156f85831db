// Package entity holds the rows that flow through the taxi/weather pipeline.
package entity

import "time"

// TimeUnit is the resolution of a raw parquet timestamp.
type TimeUnit int

const (
	// UnitNanos is assumed when the footer carries no timestamp annotation.
	UnitNanos TimeUnit = iota
	UnitMicros
	UnitMillis
)

func (u TimeUnit) String() string {
	switch u {
	case UnitMicros:
		return "MICROS"
	case UnitMillis:
		return "MILLIS"
	default:
		return "NANOS"
	}
}

// TripRecord is one taxi trip as read from a trip-record file. Every field is nullable.
type TripRecord struct {
	// PickupRaw is the raw tpep_pickup_datetime value, counted in PickupUnit since the Unix epoch.
	PickupRaw  *int64
	PickupUnit TimeUnit

	PULocationID   *int64
	TripDistance   *float64
	PassengerCount *float64
	TipAmount      *float64
	TotalAmount    *float64
	PaymentType    *int64
}

// WeatherRecord is one row of the weather CSV. Cells are bound by their header name.
type WeatherRecord struct {
	Datetime     string   `yaml:"datetime"`
	TempMax      *float64 `yaml:"tempmax"`
	TempMin      *float64 `yaml:"tempmin"`
	Temp         *float64 `yaml:"temp"`
	FeelsLikeMax *float64 `yaml:"feelslikemax"`
	FeelsLikeMin *float64 `yaml:"feelslikemin"`
	FeelsLike    *float64 `yaml:"feelslike"`
	Humidity     *float64 `yaml:"humidity"`
	Snow         *float64 `yaml:"snow"`
}

// WeatherDay is the weather observed on one calendar day.
type WeatherDay struct {
	// Date is midnight UTC of the day.
	Date         time.Time
	TempMax      *float64
	TempMin      *float64
	Temp         *float64
	FeelsLikeMax *float64
	FeelsLikeMin *float64
	FeelsLike    *float64
	Humidity     *float64
	Snow         *float64
}

// HourlyAggregate summarises the trips picked up in one hour with one payment type.
type HourlyAggregate struct {
	// PickupDate is midnight UTC of the pickup day.
	PickupDate     time.Time
	PickupHour     int
	PaymentType    int64
	TotalRides     int64
	TotalDistance  float64
	TotalPassenger float64
	TotalTips      float64
	TotalAmount    float64
}
