package incrementer

import (
	"fmt"
	"time"

	port "github.com/tigerroll/taxiweather/pkg/batch/core/application/port"
	model "github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

// DefaultTimestampKey is the parameter TimestampIncrementer sets when no name is given.
const DefaultTimestampKey = "started_at"

// TimestampIncrementer stamps the next execution with the current time in RFC 3339.
type TimestampIncrementer struct {
	name string
	now  func() time.Time
}

// NewTimestampIncrementer creates a new instance of TimestampIncrementer.
func NewTimestampIncrementer(name string) *TimestampIncrementer {
	if name == "" {
		name = DefaultTimestampKey
	}
	return &TimestampIncrementer{
		name: name,
		now:  time.Now,
	}
}

// GetNext copies params and overwrites the timestamp.
func (i *TimestampIncrementer) GetNext(params model.JobParameters) model.JobParameters {
	nextParams := copyParams(params)
	timestamp := i.now().UTC().Format(time.RFC3339)
	nextParams[i.name] = timestamp
	logger.Debugf("JobParametersIncrementer '%s': Setting '%s' to %s.", i.name, i.name, timestamp)
	return nextParams
}

// String returns the string representation of TimestampIncrementer.
func (i *TimestampIncrementer) String() string {
	return fmt.Sprintf("TimestampIncrementer[name=%s]", i.name)
}

var _ port.JobParametersIncrementer = (*TimestampIncrementer)(nil)
