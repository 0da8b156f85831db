package incrementer

import (
	"fmt"

	port "github.com/tigerroll/taxiweather/pkg/batch/core/application/port"
	model "github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

// DefaultRunIDKey is the parameter RunIDIncrementer maintains when no name is given.
const DefaultRunIDKey = "run.id"

// RunIDIncrementer sets the run id of the next execution to one more than the previous one,
// or to 1 when there was none.
type RunIDIncrementer struct {
	name string
}

// NewRunIDIncrementer creates a new instance of RunIDIncrementer.
func NewRunIDIncrementer(name string) *RunIDIncrementer {
	if name == "" {
		name = DefaultRunIDKey
	}
	return &RunIDIncrementer{
		name: name,
	}
}

// GetNext copies params and increments the run id.
func (i *RunIDIncrementer) GetNext(params model.JobParameters) model.JobParameters {
	nextParams := copyParams(params)

	currentRunID, ok := asInt64(params[i.name])
	if !ok {
		nextParams[i.name] = int64(1)
		logger.Debugf("JobParametersIncrementer '%s': '%s' not found, setting to 1.", i.name, i.name)
		return nextParams
	}
	nextParams[i.name] = currentRunID + 1
	logger.Debugf("JobParametersIncrementer '%s': Incrementing '%s' from %d to %d.", i.name, i.name, currentRunID, currentRunID+1)
	return nextParams
}

// String returns the string representation of RunIDIncrementer.
func (i *RunIDIncrementer) String() string {
	return fmt.Sprintf("RunIDIncrementer[name=%s]", i.name)
}

func copyParams(params model.JobParameters) model.JobParameters {
	next := model.NewJobParameters()
	for k, v := range params {
		next[k] = v
	}
	return next
}

// asInt64 accepts the integer forms a parameter can take, including the float64
// a JSON round trip through the ledger produces.
func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

var _ port.JobParametersIncrementer = (*RunIDIncrementer)(nil)
