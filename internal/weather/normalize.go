// Package weather turns raw weather rows into one WeatherDay per calendar date.
package weather

import (
	"sort"
	"strings"
	"time"

	"github.com/tigerroll/taxiweather/internal/domain/entity"
	config "github.com/tigerroll/taxiweather/pkg/batch/core/config"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

// DateLayouts are tried in order when parsing the datetime column.
var DateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
}

// Stats describes one normalization run.
type Stats struct {
	Input       int
	InvalidDate int
	Duplicates  int
	Days        int
}

// Normalize parses each row's datetime, truncates it to the calendar date and keeps the nine
// joined fields. Rows whose date cannot be parsed are dropped. A date seen again keeps its first row.
// The result is sorted by date.
func Normalize(records []entity.WeatherRecord, policy config.InvalidTimestampPolicy) ([]entity.WeatherDay, Stats) {
	if policy != config.InvalidTimestampsExclude {
		logger.Warnf("Unknown invalid timestamp policy '%s', excluding invalid rows.", policy)
	}

	stats := Stats{Input: len(records)}
	seen := make(map[time.Time]bool, len(records))
	days := make([]entity.WeatherDay, 0, len(records))

	for _, r := range records {
		date, ok := ParseDate(r.Datetime)
		if !ok {
			stats.InvalidDate++
			continue
		}
		if seen[date] {
			stats.Duplicates++
			continue
		}
		seen[date] = true
		days = append(days, entity.WeatherDay{
			Date:         date,
			TempMax:      r.TempMax,
			TempMin:      r.TempMin,
			Temp:         r.Temp,
			FeelsLikeMax: r.FeelsLikeMax,
			FeelsLikeMin: r.FeelsLikeMin,
			FeelsLike:    r.FeelsLike,
			Humidity:     r.Humidity,
			Snow:         r.Snow,
		})
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	stats.Days = len(days)

	if stats.InvalidDate > 0 || stats.Duplicates > 0 {
		logger.Warnf("Weather: dropped %d rows with invalid dates and %d duplicate dates.", stats.InvalidDate, stats.Duplicates)
	}
	logger.Infof("Normalized %d weather rows into %d days.", stats.Input, stats.Days)
	return days, stats
}

// ParseDate parses s with DateLayouts and returns midnight UTC of its calendar date.
// Offsets in RFC3339 values are ignored; the wall-clock date is kept.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range DateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
