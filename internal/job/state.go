// Package job assembles the taxi/weather ETL job from its tasklets.
package job

import (
	"github.com/tigerroll/taxiweather/internal/domain/entity"
)

// State carries data between the steps of one ETL run.
// Steps run sequentially, so it needs no locking.
type State struct {
	Trips      []entity.TripRecord
	Weather    []entity.WeatherRecord
	Aggregates []entity.HourlyAggregate
	Days       []entity.WeatherDay
}

// Reset drops everything held by the previous run.
func (s *State) Reset() {
	*s = State{}
}
