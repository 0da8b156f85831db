package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxiTrip_TableName(t *testing.T) {
	assert.Equal(t, "taxi_trips", TaxiTrip{}.TableName())
}

func TestTaxiTrip_HourStart(t *testing.T) {
	trip := TaxiTrip{PickupDate: "2024-01-15", PickupHour: 13}

	start, err := trip.HourStart()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC), start)

	_, err = TaxiTrip{PickupDate: "15/01/2024"}.HourStart()
	assert.Error(t, err)
}

func TestTimeUnit_String(t *testing.T) {
	assert.Equal(t, "NANOS", UnitNanos.String())
	assert.Equal(t, "MICROS", UnitMicros.String())
	assert.Equal(t, "MILLIS", UnitMillis.String())
}
