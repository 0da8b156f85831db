package entity

import "time"

// TaxiTripsTable is the table written by the persister and read by the dashboard and inspector.
const TaxiTripsTable = "taxi_trips"

// DateLayout is the format of TaxiTrip.PickupDate.
const DateLayout = "2006-01-02"

// TaxiTrip is an HourlyAggregate enriched with the weather of its day.
// It includes parquet tags for the export and GORM tags for the table.
type TaxiTrip struct {
	PickupDate     string   `gorm:"column:pickup_date;primaryKey;size:10" parquet:"name=pickup_date,type=BYTE_ARRAY,convertedtype=UTF8" json:"pickup_date"`
	PickupHour     int32    `gorm:"column:pickup_hour;primaryKey;autoIncrement:false" parquet:"name=pickup_hour,type=INT32" json:"pickup_hour"`
	PaymentType    int64    `gorm:"column:payment_type;primaryKey;autoIncrement:false" parquet:"name=payment_type,type=INT64" json:"payment_type"`
	TotalRides     int64    `gorm:"column:total_rides" parquet:"name=total_rides,type=INT64" json:"total_rides"`
	TotalDistance  float64  `gorm:"column:total_distance" parquet:"name=total_distance,type=DOUBLE" json:"total_distance"`
	TotalPassenger float64  `gorm:"column:total_passenger" parquet:"name=total_passenger,type=DOUBLE" json:"total_passenger"`
	TotalTips      float64  `gorm:"column:total_tips" parquet:"name=total_tips,type=DOUBLE" json:"total_tips"`
	TotalAmount    float64  `gorm:"column:total_amount" parquet:"name=total_amount,type=DOUBLE" json:"total_amount"`
	TempMax        *float64 `gorm:"column:tempmax" parquet:"name=tempmax,type=DOUBLE,repetitiontype=OPTIONAL" json:"tempmax"`
	TempMin        *float64 `gorm:"column:tempmin" parquet:"name=tempmin,type=DOUBLE,repetitiontype=OPTIONAL" json:"tempmin"`
	Temp           *float64 `gorm:"column:temp" parquet:"name=temp,type=DOUBLE,repetitiontype=OPTIONAL" json:"temp"`
	FeelsLikeMax   *float64 `gorm:"column:feelslikemax" parquet:"name=feelslikemax,type=DOUBLE,repetitiontype=OPTIONAL" json:"feelslikemax"`
	FeelsLikeMin   *float64 `gorm:"column:feelslikemin" parquet:"name=feelslikemin,type=DOUBLE,repetitiontype=OPTIONAL" json:"feelslikemin"`
	FeelsLike      *float64 `gorm:"column:feelslike" parquet:"name=feelslike,type=DOUBLE,repetitiontype=OPTIONAL" json:"feelslike"`
	Humidity       *float64 `gorm:"column:humidity" parquet:"name=humidity,type=DOUBLE,repetitiontype=OPTIONAL" json:"humidity"`
	Snow           *float64 `gorm:"column:snow" parquet:"name=snow,type=DOUBLE,repetitiontype=OPTIONAL" json:"snow"`
}

// TableName specifies the table name for TaxiTrip.
func (TaxiTrip) TableName() string {
	return TaxiTripsTable
}

// Date parses PickupDate as midnight UTC.
func (t TaxiTrip) Date() (time.Time, error) {
	return time.Parse(DateLayout, t.PickupDate)
}

// HourStart is the pickup date plus the pickup hour.
func (t TaxiTrip) HourStart() (time.Time, error) {
	d, err := t.Date()
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(t.PickupHour) * time.Hour), nil
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }
